package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTracker(t *testing.T, cfg AttemptTrackerConfig) (*RedisAttemptTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAttemptTracker(client, cfg), mr
}

func TestRedisAttemptTracker_Lockout(t *testing.T) {
	ctx := context.Background()
	tracker, mr := newRedisTracker(t, AttemptTrackerConfig{MaxAttempts: 3})

	for i := 0; i < 2; i++ {
		require.NoError(t, tracker.RecordFailure(ctx, "rick"))
		exceeded, err := tracker.HasExceededMaxAttempts(ctx, "rick")
		require.NoError(t, err)
		assert.False(t, exceeded, "after %d failures", i+1)
	}

	require.NoError(t, tracker.RecordFailure(ctx, "rick"))
	exceeded, err := tracker.HasExceededMaxAttempts(ctx, "rick")
	require.NoError(t, err)
	assert.True(t, exceeded)

	stored, err := mr.Get(attemptKeyPrefix + "rick")
	require.NoError(t, err)
	assert.Equal(t, "3", stored)

	other, err := tracker.HasExceededMaxAttempts(ctx, "morty")
	require.NoError(t, err)
	assert.False(t, other)

	require.NoError(t, tracker.Evict(ctx, "rick"))
	assert.False(t, mr.Exists(attemptKeyPrefix+"rick"))
	exceeded, err = tracker.HasExceededMaxAttempts(ctx, "rick")
	require.NoError(t, err)
	assert.False(t, exceeded)

	require.NoError(t, tracker.Evict(ctx, "ghost"))
}

func TestRedisAttemptTracker_TTLRunsFromLatestFailure(t *testing.T) {
	ctx := context.Background()
	tracker, mr := newRedisTracker(t, AttemptTrackerConfig{MaxAttempts: 2, TTL: time.Minute})
	key := attemptKeyPrefix + "rick"

	require.NoError(t, tracker.RecordFailure(ctx, "rick"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(40 * time.Second)
	require.NoError(t, tracker.RecordFailure(ctx, "rick"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(40 * time.Second)
	exceeded, err := tracker.HasExceededMaxAttempts(ctx, "rick")
	require.NoError(t, err)
	assert.True(t, exceeded, "second failure refreshed the window")

	mr.FastForward(30 * time.Second)
	exceeded, err = tracker.HasExceededMaxAttempts(ctx, "rick")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestRedisAttemptTracker_ConcurrentFailuresAreNotLost(t *testing.T) {
	ctx := context.Background()
	tracker, mr := newRedisTracker(t, AttemptTrackerConfig{MaxAttempts: 50})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tracker.RecordFailure(ctx, "rick"))
		}()
	}
	wg.Wait()

	stored, err := mr.Get(attemptKeyPrefix + "rick")
	require.NoError(t, err)
	assert.Equal(t, "50", stored)
	exceeded, err := tracker.HasExceededMaxAttempts(ctx, "rick")
	require.NoError(t, err)
	assert.True(t, exceeded)
}

func TestRedisAttemptTracker_ServerDown(t *testing.T) {
	ctx := context.Background()
	tracker, mr := newRedisTracker(t, AttemptTrackerConfig{})
	mr.Close()

	assert.Error(t, tracker.RecordFailure(ctx, "rick"))
	_, err := tracker.HasExceededMaxAttempts(ctx, "rick")
	assert.Error(t, err)
	assert.Error(t, tracker.Evict(ctx, "rick"))
}
