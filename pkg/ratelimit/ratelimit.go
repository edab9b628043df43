package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum delay between consecutive operations, with
// optional jitter added on top of that delay. The underlying token bucket
// holds a single token, so reservations made from different goroutines are
// serialized: no two operations start closer together than the interval.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	bucket   *rate.Limiter
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
}

// NewLimiter creates a limiter that spaces operations at least minDelay apart.
// Jitter must be between 0.0 and 1.0 and extends each wait by up to
// jitter*minDelay. If minDelay is <= 0, the limiter does not block.
func NewLimiter(minDelay time.Duration, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	if minDelay <= 0 {
		return &Limiter{jitter: jitter}
	}

	return &Limiter{
		// Burst of one: the first call proceeds immediately, every later call
		// waits until minDelay has passed since the previous reservation.
		bucket:   rate.NewLimiter(rate.Every(minDelay), 1),
		jitter:   jitter,
		interval: minDelay,
	}
}

// NewLimiterRPS creates a limiter from a requests-per-second figure.
// If rps is <= 0, the limiter does not block.
func NewLimiterRPS(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return NewLimiter(0, jitter)
	}
	return NewLimiter(time.Duration(float64(time.Second)/rps), jitter)
}

// Interval returns the configured minimum delay between operations.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until it is time to perform the next operation, or until the
// context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.bucket == nil {
		return ctx.Err()
	}

	if l.jitter > 0 {
		// Jitter is slept before the reservation so that the spacing between
		// reservations, and therefore between operation starts, never drops
		// below the interval.
		jitterDuration := time.Duration(float64(l.interval) * l.jitter * rand.Float64())
		if jitterDuration > 0 {
			timer := time.NewTimer(jitterDuration)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return l.bucket.Wait(ctx)
}

// Stop releases any resources associated with the limiter.
func (l *Limiter) Stop() {}
