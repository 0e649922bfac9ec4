// Package ratelimit provides the token-bucket limiter shared by every
// concurrent provider fetch of an analysis run.  One *TokenBucket is created
// per process (or per analysis when configured so) and passed explicitly to
// the fetcher; there is no package-level limiter.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// Clock abstracts time so tests can drive the limiter deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall-clock implementation of Clock.
func SystemClock() Clock { return systemClock{} }

// Option configures a TokenBucket.
type Option func(*TokenBucket)

// WithClock injects a Clock.  Used by tests.
func WithClock(c Clock) Option {
	return func(b *TokenBucket) {
		if c != nil {
			b.clock = c
		}
	}
}

// TokenBucket is a blocking token-bucket limiter.  It holds up to burst
// tokens and refills at rate tokens per second.  It is safe for concurrent
// use; waiters are not served in FIFO order.
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64
	burst      int
	tokens     float64
	lastRefill time.Time
	clock      Clock
}

// NewTokenBucket creates a limiter that starts full.
func NewTokenBucket(rate float64, burst int, opts ...Option) (*TokenBucket, error) {
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return nil, errors.Newf(errors.ErrCodeValidation, "ratelimit: rate must be a positive finite number, got %v", rate)
	}
	if burst < 1 {
		return nil, errors.Newf(errors.ErrCodeValidation, "ratelimit: burst must be ≥ 1, got %d", burst)
	}
	b := &TokenBucket{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		clock:  SystemClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastRefill = b.clock.Now()
	return b, nil
}

// refill must be called with mu held.
func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(b.burst), b.tokens+elapsed*b.rate)
		b.lastRefill = now
	}
}

// Allow takes a token if one is available and reports whether it did.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.clock.Now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.  It returns the time
// spent waiting.
func (b *TokenBucket) Wait(ctx context.Context) (time.Duration, error) {
	var waited time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return waited, err
		}

		b.mu.Lock()
		b.refill(b.clock.Now())
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return waited, nil
		}
		deficit := 1 - b.tokens
		d := time.Duration(math.Ceil(deficit / b.rate * float64(time.Second)))
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return waited, ctx.Err()
		case <-b.clock.After(d):
			waited += d
		}
	}
}

// SetRate changes the refill rate in place.  Non-positive values are ignored.
// Used when the configuration is hot-reloaded.
func (b *TokenBucket) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	b.mu.Lock()
	b.refill(b.clock.Now())
	b.rate = rate
	b.mu.Unlock()
}

// Rate returns the current refill rate in tokens per second.
func (b *TokenBucket) Rate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// Burst returns the bucket capacity.
func (b *TokenBucket) Burst() int { return b.burst }

//Personal.AI order the ending
