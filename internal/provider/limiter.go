package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces calls to one provider. *rate.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// PerSecond allows n requests per second with no burst.
func PerSecond(n float64) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(n), 1)
}

// PerMinute allows n requests per minute with no burst.
func PerMinute(n float64) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/n)), 1)
}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// Unlimited never waits.
var Unlimited RateLimiter = unlimited{}
