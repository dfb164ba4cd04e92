package pipeline

import (
	"fmt"
	"strings"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// Stage is one discrete pipeline step
type Stage string

// Pipeline stages
const (
	StageTranscribe        Stage = "transcribe"
	StageGenerate          Stage = "generate"
	StageRegenerateOverlay Stage = "regenerate_overlay"
	StageRegeneratePost    Stage = "regenerate_post"
	StageTranslate         Stage = "translate"
	StageProcess           Stage = "process"
)

type transition struct {
	// nil accepts every status
	sources  []models.Status
	running  models.Status
	requires func(p *models.ProductionProject) string
}

var transitions = map[Stage]transition{
	StageTranscribe: {
		sources: []models.Status{models.StatusUploaded, models.StatusError, models.StatusTranscribed},
		running: models.StatusTranscribing,
	},
	StageGenerate: {
		sources: []models.Status{models.StatusTranscribed, models.StatusGenerated, models.StatusError},
		running: models.StatusGenerating,
	},
	StageRegenerateOverlay: {
		running: models.StatusGenerating,
		requires: func(p *models.ProductionProject) string {
			if !p.HasOverlay() {
				return "overlay has not been generated yet"
			}
			return ""
		},
	},
	StageRegeneratePost: {
		running: models.StatusGenerating,
		requires: func(p *models.ProductionProject) string {
			if !p.HasPost() {
				return "post has not been generated yet"
			}
			return ""
		},
	},
	StageTranslate: {
		running: models.StatusTranslating,
	},
	StageProcess: {
		sources: []models.Status{models.StatusTranslated, models.StatusCompleted, models.StatusError},
		running: models.StatusProcessing,
		requires: func(p *models.ProductionProject) string {
			if len(p.Translations) == 0 {
				return "translations are empty, run translate first"
			}
			return ""
		},
	},
}

// ParseStage accepts both underscore and hyphen spellings
func ParseStage(value string) (Stage, error) {
	stage := Stage(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	if _, ok := transitions[stage]; !ok {
		return "", failure.Validation("unknown stage %q", value)
	}
	return stage, nil
}

// Stages returns every stage in pipeline order
func Stages() []Stage {
	return []Stage{
		StageTranscribe,
		StageGenerate,
		StageRegenerateOverlay,
		StageRegeneratePost,
		StageTranslate,
		StageProcess,
	}
}

func (s Stage) String() string {
	return string(s)
}

// RunningStatus is the status written before the stage does any I/O
func (s Stage) RunningStatus() models.Status {
	return transitions[s].running
}

// AcceptsFrom reports whether the stage may start from status
func (s Stage) AcceptsFrom(status models.Status) bool {
	t, ok := transitions[s]
	if !ok {
		return false
	}
	if t.sources == nil {
		return true
	}
	for _, source := range t.sources {
		if source == status {
			return true
		}
	}
	return false
}

// TransitionError rejects a stage that may not start from the project's current state
type TransitionError struct {
	Stage  Stage
	Status models.Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot run %s: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("cannot run %s from status %s", e.Stage, e.Status)
}

// Unwrap exposes the rejection as a validation failure
func (e *TransitionError) Unwrap() error {
	return &failure.ValidationError{Message: e.Error()}
}

// CheckTransition validates that stage may start for p. It never mutates p.
func CheckTransition(stage Stage, p *models.ProductionProject) error {
	t, ok := transitions[stage]
	if !ok {
		return failure.Validation("unknown stage %q", stage)
	}
	if !stage.AcceptsFrom(p.Status) {
		return &TransitionError{Stage: stage, Status: p.Status}
	}
	if t.requires != nil {
		if reason := t.requires(p); reason != "" {
			return &TransitionError{Stage: stage, Status: p.Status, Reason: reason}
		}
	}
	return nil
}
