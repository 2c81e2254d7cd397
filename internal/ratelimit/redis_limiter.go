package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements the attempt limiter with a token bucket held in
// Redis. The bucket math runs in a Lua script so concurrent attempts from
// multiple server instances stay atomic.
type RedisLimiter struct {
	client redis.UniversalClient
	config *Config
	script *redis.Script
}

// NewRedisLimiter creates a new Redis-backed limiter
func NewRedisLimiter(client redis.UniversalClient, config *Config) *RedisLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	script := redis.NewScript(`
		-- Token bucket (atomic)
		-- KEYS[1] = bucket key
		-- ARGV[1] = now (float seconds)
		-- ARGV[2] = refill rate (tokens per second)
		-- ARGV[3] = capacity
		-- ARGV[4] = ttl seconds

		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local rate = tonumber(ARGV[2])
		local capacity = tonumber(ARGV[3])
		local ttl = tonumber(ARGV[4])

		local tokens = tonumber(redis.call('HGET', key, 'tokens'))
		local last_refill = tonumber(redis.call('HGET', key, 'last_refill'))

		if tokens == nil then
			tokens = capacity
			last_refill = now
		end

		tokens = math.min(tokens + (now - last_refill) * rate, capacity)

		local allowed = 0
		if tokens >= 1 then
			tokens = tokens - 1
			allowed = 1
		end

		redis.call('HSET', key, 'tokens', tokens)
		redis.call('HSET', key, 'last_refill', now)
		redis.call('EXPIRE', key, ttl)

		return allowed
	`)

	return &RedisLimiter{client: client, config: config, script: script}
}

func (l *RedisLimiter) key(k string) string {
	return fmt.Sprintf("%s:%s", l.config.KeyPrefix, k)
}

// Allow reports whether one more attempt is permitted for the key
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixNano()) / float64(time.Second)
	res, err := l.script.Run(ctx, l.client,
		[]string{l.key(key)},
		now, l.config.Rate, l.config.Burst, int(l.config.ttl().Seconds()),
	).Int()
	if err != nil {
		if l.config.FailOpen {
			return true, nil
		}
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return res == 1, nil
}

// Reset clears the limit state for a key
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}
