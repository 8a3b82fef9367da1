package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	DefaultMaxAttempts     = 5
	DefaultAttemptTTL      = 15 * time.Minute
	DefaultAttemptCapacity = 100
)

// ErrAttemptNotRecorded means the cache refused to store a new counter.
var ErrAttemptNotRecorded = errors.New("login attempt not recorded")

// AttemptTracker counts consecutive failed logins per username.
type AttemptTracker interface {
	RecordFailure(ctx context.Context, username string) error
	HasExceededMaxAttempts(ctx context.Context, username string) (bool, error)
	Evict(ctx context.Context, username string) error
}

// AttemptTrackerConfig sizes a tracker.
type AttemptTrackerConfig struct {
	MaxAttempts int
	TTL         time.Duration
	Capacity    int64
}

func (c AttemptTrackerConfig) withDefaults() AttemptTrackerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.TTL <= 0 {
		c.TTL = DefaultAttemptTTL
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultAttemptCapacity
	}
	return c
}

// MemoryAttemptTracker keeps counters in a bounded ristretto cache. Every
// failure rewrites the entry, so the TTL runs from the latest failure.
type MemoryAttemptTracker struct {
	mu    sync.Mutex
	cache *ristretto.Cache[string, int]
	cfg   AttemptTrackerConfig
}

// NewMemoryAttemptTracker builds an in-process tracker.
func NewMemoryAttemptTracker(cfg AttemptTrackerConfig) (*MemoryAttemptTracker, error) {
	cfg = cfg.withDefaults()
	cache, err := ristretto.NewCache(&ristretto.Config[string, int]{
		NumCounters:        cfg.Capacity * 10,
		MaxCost:            cfg.Capacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init login attempt cache: %w", err)
	}
	return &MemoryAttemptTracker{cache: cache, cfg: cfg}, nil
}

// RecordFailure increments the username's counter.
func (t *MemoryAttemptTracker) RecordFailure(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempts, _ := t.cache.Get(username)
	if !t.cache.SetWithTTL(username, attempts+1, 1, t.cfg.TTL) {
		return ErrAttemptNotRecorded
	}
	t.cache.Wait()
	return nil
}

// HasExceededMaxAttempts reports whether the counter reached the threshold.
func (t *MemoryAttemptTracker) HasExceededMaxAttempts(_ context.Context, username string) (bool, error) {
	return t.Attempts(username) >= t.cfg.MaxAttempts, nil
}

// Attempts returns the current counter value.
func (t *MemoryAttemptTracker) Attempts(username string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempts, _ := t.cache.Get(username)
	return attempts
}

// Evict forgets the username's counter.
func (t *MemoryAttemptTracker) Evict(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache.Del(username)
	t.cache.Wait()
	return nil
}

// Close stops the cache's background goroutines.
func (t *MemoryAttemptTracker) Close() {
	t.cache.Close()
}
