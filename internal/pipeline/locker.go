package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStageRunning is returned when another stage holds the project's lease
var ErrStageRunning = errors.New("a stage is already running for this project")

type memoryLease struct {
	token   string
	expires time.Time
}

// MemoryLocker is an in-process Locker for single-node deployments and tests
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
}

// NewMemoryLocker creates an empty locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[string]memoryLease),
		now:    time.Now,
	}
}

// Acquire takes the lease for projectID unless an unexpired one exists
func (l *MemoryLocker) Acquire(_ context.Context, projectID string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, ok := l.leases[projectID]; ok && now.Before(lease.expires) {
		return "", false, nil
	}

	token := uuid.New().String()
	l.leases[projectID] = memoryLease{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// Release drops the lease when token still owns it
func (l *MemoryLocker) Release(_ context.Context, projectID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, ok := l.leases[projectID]; ok && lease.token == token {
		delete(l.leases, projectID)
	}
	return nil
}
