package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryLocker()

	token, ok, err := locker.Acquire(ctx, "p-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = locker.Acquire(ctx, "p-1", time.Minute)
	assert.False(t, ok)

	_, ok, _ = locker.Acquire(ctx, "p-2", time.Minute)
	assert.True(t, ok, "leases are per project")

	require.NoError(t, locker.Release(ctx, "p-1", "stale-token"))
	_, ok, _ = locker.Acquire(ctx, "p-1", time.Minute)
	assert.False(t, ok, "a stale token must not release the lease")

	require.NoError(t, locker.Release(ctx, "p-1", token))
	_, ok, _ = locker.Acquire(ctx, "p-1", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLockerExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	locker := NewMemoryLocker()
	locker.now = func() time.Time { return now }

	_, ok, _ := locker.Acquire(ctx, "p-1", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = locker.Acquire(ctx, "p-1", time.Minute)
	assert.True(t, ok, "an expired lease can be taken over")
}

func TestMemoryLockerConcurrentAcquire(t *testing.T) {
	locker := NewMemoryLocker()
	var winners int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := locker.Acquire(context.Background(), "p-1", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}
