package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if it still carries the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaseStore grants per-project exclusive leases backed by Redis
type LeaseStore struct {
	client *redis.Client
}

// NewLeaseStore creates a lease store sharing the cache connection
func NewLeaseStore(c *Cache) *LeaseStore {
	return &LeaseStore{client: c.client}
}

func leaseKey(projectID string) string {
	return fmt.Sprintf("lease:project:%s", projectID)
}

// Acquire takes the lease for projectID. ok is false when another holder has it.
func (s *LeaseStore) Acquire(ctx context.Context, projectID string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, leaseKey(projectID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release gives the lease back. A stale token is ignored.
func (s *LeaseStore) Release(ctx context.Context, projectID, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, s.client, []string{leaseKey(projectID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
