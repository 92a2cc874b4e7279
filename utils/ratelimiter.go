package utils

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between consecutive calls.
// The first call never waits.
type RateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	delay    time.Duration
}

// NewRateLimiter creates a new RateLimiter with the given delay in milliseconds
func NewRateLimiter(delayMs int) *RateLimiter {
	return &RateLimiter{
		delay: time.Duration(delayMs) * time.Millisecond,
	}
}

// Wait blocks until enough time has passed since the last call or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastCall.IsZero() && r.delay > 0 {
		if remaining := r.delay - time.Since(r.lastCall); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	r.lastCall = time.Now()
	return nil
}

// Reset forgets the last call so the next Wait returns immediately.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	r.lastCall = time.Time{}
	r.mu.Unlock()
}
