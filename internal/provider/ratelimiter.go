package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out calls to upstream APIs that throttle anonymous
// clients. It allows bursts of up to maxTokens calls and then one call per
// refillInterval.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(maxTokens int, refillInterval time.Duration) *RateLimiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(refillInterval), maxTokens)}
}

// Wait blocks until a token is available or ctx is done. A nil limiter never
// blocks.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
