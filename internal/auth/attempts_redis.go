package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "login_attempts:"

// RedisAttemptTracker shares counters between replicas. Capacity is bounded
// by the Redis eviction policy rather than by the tracker.
type RedisAttemptTracker struct {
	client *redis.Client
	cfg    AttemptTrackerConfig
}

// NewRedisAttemptTracker builds a Redis backed tracker.
func NewRedisAttemptTracker(client *redis.Client, cfg AttemptTrackerConfig) *RedisAttemptTracker {
	return &RedisAttemptTracker{client: client, cfg: cfg.withDefaults()}
}

// RecordFailure increments the counter and refreshes its TTL atomically.
func (t *RedisAttemptTracker) RecordFailure(ctx context.Context, username string) error {
	key := attemptKeyPrefix + username
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, t.cfg.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

// HasExceededMaxAttempts reports whether the counter reached the threshold.
func (t *RedisAttemptTracker) HasExceededMaxAttempts(ctx context.Context, username string) (bool, error) {
	attempts, err := t.client.Get(ctx, attemptKeyPrefix+username).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read login attempts: %w", err)
	}
	return attempts >= t.cfg.MaxAttempts, nil
}

// Evict forgets the username's counter.
func (t *RedisAttemptTracker) Evict(ctx context.Context, username string) error {
	if err := t.client.Del(ctx, attemptKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("evict login attempts: %w", err)
	}
	return nil
}
