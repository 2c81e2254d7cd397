// Package ratelimit provides the sign-in attempt limiter
package ratelimit

import (
	"context"
	"time"
)

// Limiter throttles repeated attempts per key (sign-in attempts per email)
type Limiter interface {
	// Allow reports whether one more attempt is permitted for the key
	Allow(ctx context.Context, key string) (bool, error)

	// Reset clears the limit state for a key (after a successful sign-in)
	Reset(ctx context.Context, key string) error
}

// Config holds limiter configuration
type Config struct {
	// Rate is the sustained refill rate in attempts per second
	Rate float64

	// Burst is the bucket capacity
	Burst int

	// KeyPrefix is the Redis key prefix
	KeyPrefix string

	// FailOpen allows the attempt when Redis is unavailable. Sign-in keeps
	// this off: an unreachable limiter must not disable brute-force
	// protection.
	FailOpen bool
}

// DefaultConfig returns a configuration tuned for password sign-in:
// five attempts of burst, refilling one attempt every 12 seconds.
func DefaultConfig() *Config {
	return &Config{
		Rate:      1.0 / 12.0,
		Burst:     5,
		KeyPrefix: "signin",
	}
}

// ttl is how long idle bucket state is kept
func (c *Config) ttl() time.Duration {
	refill := time.Duration(float64(c.Burst)/c.Rate) * time.Second
	return 2 * refill
}
