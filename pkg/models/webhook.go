package models

import "time"

// WebhookEvent represents the payload sent to webhooks
type WebhookEvent struct {
	Event     string        `json:"event"`
	Timestamp time.Time     `json:"timestamp"`
	Data      ProjectStatus `json:"data"`
}

// Webhook event types
const (
	WebhookEventStageStarted   = "stage.started"
	WebhookEventStageCompleted = "stage.completed"
	WebhookEventStageFailed    = "stage.failed"
	WebhookEventProjectCreated = "project.created"
)
