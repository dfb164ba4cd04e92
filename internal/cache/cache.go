package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func statusKey(projectID string) string {
	return fmt.Sprintf("project:status:%s", projectID)
}

// SetProjectStatus caches the polling view of a project
func (c *Cache) SetProjectStatus(ctx context.Context, status models.ProjectStatus, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal project status: %w", err)
	}
	return c.client.Set(ctx, statusKey(status.ID), data, ttl).Err()
}

// GetProjectStatus retrieves a cached status view; a miss returns nil, nil
func (c *Cache) GetProjectStatus(ctx context.Context, projectID string) (*models.ProjectStatus, error) {
	data, err := c.client.Get(ctx, statusKey(projectID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get project status from cache: %w", err)
	}

	var status models.ProjectStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project status: %w", err)
	}

	return &status, nil
}

// DeleteProjectStatus invalidates the cached status view
func (c *Cache) DeleteProjectStatus(ctx context.Context, projectID string) error {
	return c.client.Del(ctx, statusKey(projectID)).Err()
}

// CheckRateLimit counts a hit against key and reports whether it stays within limit for the window
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return count <= limit, nil
}
