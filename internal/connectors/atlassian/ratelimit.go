package atlassian

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// RateLimitConfig holds the token bucket parameters for one product.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained refill rate R.
	RequestsPerSecond float64
	// BurstSize is the bucket capacity C.
	BurstSize int
}

// DefaultRateLimits provides conservative defaults per product, well
// below Atlassian's published cloud quotas.
var DefaultRateLimits = map[domain.SourceSystem]RateLimitConfig{
	domain.SystemConfluence: {RequestsPerSecond: 5.0, BurstSize: 10},
	domain.SystemJira:       {RequestsPerSecond: 5.0, BurstSize: 10},
}

// RateLimiter gates all of one product's API calls through a token
// bucket. Confluence and Jira quotas are independent, so each product
// gets its own bucket. Acquisition blocks until a token is available;
// backpressure is applied by delay, never by rejection.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	product domain.SourceSystem
}

// NewRateLimiter creates a limiter for the product. Non-positive
// capacity or refill values fall back to the product default.
func NewRateLimiter(product domain.SourceSystem, capacity int, refill float64) *RateLimiter {
	if capacity <= 0 || refill <= 0 {
		cfg, ok := DefaultRateLimits[product]
		if !ok {
			cfg = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}
		}
		if capacity <= 0 {
			capacity = cfg.BurstSize
		}
		if refill <= 0 {
			refill = cfg.RequestsPerSecond
		}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(refill), capacity),
		product: product,
	}
}

// Wait blocks until a request may be sent without exceeding the rate
// limit. It also respects any backoff window recorded from a 429.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError pushes a not-before window derived from a 429's
// Retry-After hint. Subsequent Wait calls delay until it passes.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = 60 * time.Second
	}
	r.retryAt = time.Now().Add(retryAfter)
}

// Allow reports whether a request could be sent immediately without
// blocking. Used by tests to observe bucket behaviour deterministically.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}
