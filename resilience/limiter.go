package resilience

import (
	"context"
	"sync"
	"time"
)

// LimiterConfig configures a TokenBucket.
type LimiterConfig struct {
	// Burst is the bucket capacity.
	Burst int
	// RatePerSecond is the refill rate.
	RatePerSecond float64
}

// DefaultLimiterConfig allows bursts of 32 requests and 16 requests per second
// sustained per registry host.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{Burst: 32, RatePerSecond: 16}
}

// TokenBucket is a token bucket rate limiter.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	rate       float64
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(config LimiterConfig) *TokenBucket {
	capacity := float64(max(config.Burst, 1))
	return &TokenBucket{
		capacity:   capacity,
		rate:       config.RatePerSecond,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

// take consumes a token and returns zero, or returns how long to wait for one.
func (tb *TokenBucket) take() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens = min(tb.capacity, tb.tokens+now.Sub(tb.lastRefill).Seconds()*tb.rate)
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return 0
	}
	if tb.rate <= 0 {
		return time.Second
	}
	return time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait := tb.take()
		if wait == 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tokens returns the tokens currently available.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}
