package models

import (
	"time"

	"github.com/google/uuid"
)

// StageTask is one background execution of a pipeline stage for one project
type StageTask struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Stage      string    `json:"stage"`
	LeaseToken string    `json:"lease_token"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewStageTask creates a task with a fresh identity
func NewStageTask(projectID, stage, leaseToken string) *StageTask {
	return &StageTask{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		Stage:      stage,
		LeaseToken: leaseToken,
		EnqueuedAt: time.Now(),
	}
}

// Key identifies the task by project and stage
func (t *StageTask) Key() string {
	return t.ProjectID + ":" + t.Stage
}
