package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg *Config) *RedisLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, cfg)
}

func TestRedisLimiter_BurstThenDeny(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Burst = 3
	cfg.Rate = 0.0001 // effectively no refill within the test
	limiter := newTestLimiter(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "ana@example.com")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d inside the burst", i+1)
	}

	allowed, err := limiter.Allow(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.False(t, allowed, "attempt beyond the burst")
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Burst = 1
	cfg.Rate = 0.0001
	limiter := newTestLimiter(t, cfg)

	ctx := context.Background()
	allowed, err := limiter.Allow(ctx, "ana@example.com")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "ana@example.com")
	require.NoError(t, err)
	require.False(t, allowed)

	// A different key still has its own budget
	allowed, err = limiter.Allow(ctx, "luis@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_ResetRestoresBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Burst = 1
	cfg.Rate = 0.0001
	limiter := newTestLimiter(t, cfg)

	ctx := context.Background()
	_, err := limiter.Allow(ctx, "ana@example.com")
	require.NoError(t, err)

	allowed, err := limiter.Allow(ctx, "ana@example.com")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "ana@example.com"))

	allowed, err = limiter.Allow(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_FailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := DefaultConfig()
	cfg.FailOpen = true
	limiter := NewRedisLimiter(client, cfg)

	// A dead backend with FailOpen set lets attempts through
	mr.Close()
	allowed, err := limiter.Allow(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_FailClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRedisLimiter(client, DefaultConfig())

	mr.Close()
	allowed, err := limiter.Allow(context.Background(), "ana@example.com")
	assert.Error(t, err)
	assert.False(t, allowed)
}
