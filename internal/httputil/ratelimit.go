// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing requests with a token bucket and additionally
// honors server-imposed backoff: after SetRetryAfter, Wait blocks every
// caller until the hold expires. One limiter is shared per provider.
type RateLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained
// requests with a burst of one. Non-positive rates default to 2/s.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Wait blocks until a request may be sent: first through any server-imposed
// hold, then through the token bucket. Returns ctx.Err() if the context is
// cancelled while waiting.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return r.limiter.Wait(ctx)
}

// SetRetryAfter imposes a hold: no request passes Wait until d has elapsed.
// Called by clients when a response carries a Retry-After hint.
func (r *RateLimiter) SetRetryAfter(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	if at := time.Now().Add(d); at.After(r.retryAt) {
		r.retryAt = at
	}
	r.mu.Unlock()
}
