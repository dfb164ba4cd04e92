package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/metrics"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/tracing"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/translation"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

const notifyTimeout = 10 * time.Second

// Runner executes dispatched stage tasks
type Runner struct {
	cfg    Config
	deps   Dependencies
	logger *logging.Logger
}

// NewRunner creates a runner. A nil Translator degrades to passthrough and a nil Locker to an in-memory one.
func NewRunner(cfg Config, deps Dependencies, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if deps.Translator == nil {
		deps.Translator = translation.Passthrough{}
	}
	if deps.Locker == nil {
		deps.Locker = NewMemoryLocker()
	}
	return &Runner{cfg: cfg.withDefaults(), deps: deps, logger: logger}
}

// Run executes one stage and records its outcome on the project.
// A stage failure is stored as status error and not returned; the returned
// error means the outcome itself could not be recorded.
func (r *Runner) Run(ctx context.Context, task *models.StageTask) error {
	events := r.logger.WithTaskID(task.ID)
	logger := events.WithProjectID(task.ProjectID).WithStage(task.Stage)

	defer func() {
		if err := r.deps.Locker.Release(context.Background(), task.ProjectID, task.LeaseToken); err != nil {
			logger.ErrorWithErr("Failed to release project lease", err)
		}
	}()

	stage, err := ParseStage(task.Stage)
	if err != nil {
		r.abandon(task.ProjectID, err, logger)
		return err
	}

	span, ctx := tracing.StartStageSpan(ctx, stage.String(), task.ProjectID)
	defer tracing.FinishSpan(span)

	p, err := r.deps.Store.Get(ctx, task.ProjectID)
	if err != nil {
		tracing.LogError(span, err)
		if !errors.Is(err, models.ErrProjectNotFound) {
			r.abandon(task.ProjectID, err, logger)
		}
		return fmt.Errorf("failed to load project: %w", err)
	}

	start := time.Now()
	metrics.RecordStageStarted(stage.String())
	events.LogStageEvent(p.ID, stage.String(), "started", nil)
	r.notify(p.ID, models.WebhookEventStageStarted)

	stageErr := r.runStage(ctx, stage, p, logger)

	if stageErr != nil {
		tracing.LogError(span, stageErr)
		metrics.RecordStageFinished(stage.String(), "error", time.Since(start).Seconds())
		metrics.RecordError("pipeline", failure.Kind(stageErr))
		events.LogStageEvent(p.ID, stage.String(), "failed", map[string]interface{}{
			"error_kind": failure.Kind(stageErr),
			"error":      stageErr.Error(),
		})

		if err := r.setStatus(context.Background(), p.ID, models.StatusError, failure.Message(stageErr)); err != nil {
			return fmt.Errorf("failed to record stage failure: %w", err)
		}
		r.notify(p.ID, models.WebhookEventStageFailed)
		return nil
	}

	metrics.RecordStageFinished(stage.String(), "success", time.Since(start).Seconds())
	events.LogStageEvent(p.ID, stage.String(), "completed", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	r.notify(p.ID, models.WebhookEventStageCompleted)
	return nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, p *models.ProductionProject, logger *logging.Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage, rec)
		}
	}()

	switch stage {
	case StageTranscribe:
		return r.transcribe(ctx, p)
	case StageGenerate:
		return r.generate(ctx, p, partAll)
	case StageRegenerateOverlay:
		return r.generate(ctx, p, partOverlay)
	case StageRegeneratePost:
		return r.generate(ctx, p, partPost)
	case StageTranslate:
		return r.translate(ctx, p, logger)
	case StageProcess:
		return r.process(ctx, p)
	default:
		return errors.New("unhandled stage " + stage.String())
	}
}

// abandon marks a task that could not start, so the project does not stay in
// its in-progress status without a message
func (r *Runner) abandon(projectID string, cause error, logger *logging.Logger) {
	metrics.RecordError("pipeline", failure.Kind(cause))
	if err := r.setStatus(context.Background(), projectID, models.StatusError, failure.Message(cause)); err != nil {
		logger.ErrorWithErr("Failed to record abandoned stage", err)
		return
	}
	r.notify(projectID, models.WebhookEventStageFailed)
}

// setStatus writes status and drops the cached polling view
func (r *Runner) setStatus(ctx context.Context, id string, status models.Status, errorMessage string) error {
	if err := r.deps.Store.UpdateStatus(ctx, id, status, errorMessage); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *Runner) invalidate(ctx context.Context, id string) {
	if r.deps.Cache == nil {
		return
	}
	if err := r.deps.Cache.DeleteProjectStatus(ctx, id); err != nil {
		r.logger.WithProjectID(id).Warnf("Failed to invalidate status cache: %v", err)
	}
}

func (r *Runner) notify(id, event string) {
	if r.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	p, err := r.deps.Store.Get(ctx, id)
	if err != nil {
		r.logger.WithProjectID(id).Warnf("Skipping %s notification: %v", event, err)
		return
	}
	if err := r.deps.Notifier.Notify(ctx, event, p.StatusView()); err != nil {
		r.logger.WithProjectID(id).Warnf("Webhook delivery failed for %s: %v", event, err)
	}
}
