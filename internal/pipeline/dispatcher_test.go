package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

type blockingRunner struct {
	release chan struct{}
	mu      sync.Mutex
	ran     []string
}

func (b *blockingRunner) Run(ctx context.Context, task *models.StageTask) error {
	<-b.release
	b.mu.Lock()
	b.ran = append(b.ran, task.Key())
	b.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New("logged, not returned")
}

func TestLocalDispatcherTracksTasks(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	d := NewLocalDispatcher(runner, nil)

	first := models.NewStageTask("p-1", "translate", "t1")
	second := models.NewStageTask("p-2", "translate", "t2")

	require.NoError(t, d.Dispatch(context.Background(), first))
	require.NoError(t, d.Dispatch(context.Background(), second))
	assert.ErrorIs(t, d.Dispatch(context.Background(), models.NewStageTask("p-1", "translate", "t3")), ErrStageRunning)

	active := d.Active()
	require.Len(t, active, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{active[0].ID, active[1].ID})

	close(runner.release)
	d.Wait()

	assert.Empty(t, d.Active())
	assert.ElementsMatch(t, []string{"p-1:translate", "p-2:translate"}, runner.ran)
}

func TestLocalDispatcherDetachesRequestContext(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	d := NewLocalDispatcher(runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, models.NewStageTask("p-1", "process", "t")))
	cancel()
	close(runner.release)
	d.Wait()

	assert.Equal(t, []string{"p-1:process"}, runner.ran)
}
