// Package ratelimit throttles event dispatch with a token bucket, one
// bucket per session key.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket. Safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	burst      float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	lastUsed   time.Time
}

// NewLimiter creates a bucket holding at most burst tokens, refilled at
// refillRate tokens per second. The bucket starts full.
func NewLimiter(burst, refillRate float64) *Limiter {
	now := time.Now()
	return &Limiter{
		tokens:     burst,
		burst:      burst,
		refillRate: refillRate,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes one token if available and reports whether it did.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	l.lastUsed = time.Now()

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true
	}
	return false
}

// Available returns the current token count.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}

// idleSince reports how long ago the bucket was last consulted.
func (l *Limiter) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.lastUsed)
}

// refill adds tokens for the time elapsed since the last refill.
// Caller must hold mu.
func (l *Limiter) refill() {
	now := time.Now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.refillRate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now
}
