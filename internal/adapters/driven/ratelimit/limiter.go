// Package ratelimit throttles calls to model providers.
// Decorators share one Limiter per provider so indexing and asking draw from the same budget.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultBackoff is how long callers pause after a provider answers 429.
const DefaultBackoff = 5 * time.Second

// Limiter is a token bucket with a backoff window for rate limit responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
	now     func() time.Time
}

// NewLimiter creates a limiter from cfg.
// It returns nil when cfg.RequestsPerSecond is not positive; a nil Limiter never blocks.
func NewLimiter(cfg domain.RateLimitConfig) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		backoff: DefaultBackoff,
		now:     time.Now,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimit.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := retryAt.Sub(l.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// RecordRateLimit starts a backoff window. Zero uses DefaultBackoff.
func (l *Limiter) RecordRateLimit(retryAfter time.Duration) {
	if l == nil {
		return
	}
	if retryAfter <= 0 {
		retryAfter = l.backoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(retryAfter); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// Allow reports whether a request can be made immediately.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if l.now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}

// rateLimited reports whether an Availability reason came from a 429.
func rateLimited(a domain.Availability) bool {
	return !a.Available && strings.HasPrefix(a.Reason, "rate limited")
}
