package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// TaskRunner executes one stage task to completion
type TaskRunner interface {
	Run(ctx context.Context, task *models.StageTask) error
}

// LocalDispatcher runs stage tasks on in-process goroutines, tracked by project and stage
type LocalDispatcher struct {
	runner TaskRunner
	logger *logging.Logger

	mu     sync.Mutex
	active map[string]*models.StageTask
	wg     sync.WaitGroup
}

// NewLocalDispatcher creates a dispatcher bound to runner
func NewLocalDispatcher(runner TaskRunner, logger *logging.Logger) *LocalDispatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LocalDispatcher{
		runner: runner,
		logger: logger,
		active: make(map[string]*models.StageTask),
	}
}

// Dispatch starts the task in the background. The request context is not
// propagated: once dispatched a stage runs until it finishes or times out.
func (d *LocalDispatcher) Dispatch(_ context.Context, task *models.StageTask) error {
	key := task.Key()

	d.mu.Lock()
	if _, running := d.active[key]; running {
		d.mu.Unlock()
		return ErrStageRunning
	}
	d.active[key] = task
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer d.finish(key)

		if err := d.runner.Run(context.Background(), task); err != nil {
			d.logger.WithTaskID(task.ID).WithProjectID(task.ProjectID).WithStage(task.Stage).
				ErrorWithErr("Stage task failed", err)
		}
	}()

	return nil
}

func (d *LocalDispatcher) finish(key string) {
	d.mu.Lock()
	delete(d.active, key)
	d.mu.Unlock()
}

// Active returns the tasks currently running, ordered by enqueue time
func (d *LocalDispatcher) Active() []models.StageTask {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.StageTask, 0, len(d.active))
	for _, task := range d.active {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// Wait blocks until every dispatched task has finished
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
