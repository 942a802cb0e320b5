package provider

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pokerjest/animeshelf/internal/metrics"
)

// performWithRetry runs operation against the primary provider, waiting on the
// limiter before every attempt.
func performWithRetry[T any](ctx context.Context, c *Client, externalID int, operation func(context.Context) (T, error)) (T, error) {
	attempts := 0

	result, err := retry.DoWithData(
		func() (T, error) {
			var zero T
			attempts++
			if err := c.opts.PrimaryLimiter.Wait(ctx); err != nil {
				return zero, err
			}

			start := c.opts.Clock.Now()
			v, err := operation(ctx)
			elapsed := c.opts.Clock.Now().Sub(start)
			if err == nil {
				metrics.RecordProviderRequest(ProviderPrimary, "ok", elapsed)
				return v, nil
			}
			// a client timeout also wraps context.DeadlineExceeded; only the
			// caller's ctx ends the loop early
			if ctx.Err() != nil {
				return zero, err
			}

			fe := classify(ProviderPrimary, externalID, err)
			metrics.RecordProviderRequest(ProviderPrimary, string(fe.Kind), elapsed)
			return zero, fe
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.MaxAttempts)),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			if IsKind(err, KindRateLimited) {
				return c.opts.RateLimitBackoff
			}
			return c.opts.RetryBackoff
		}),
		retry.RetryIf(func(err error) bool {
			var fe *FetchError
			return errors.As(err, &fe) && fe.Retryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Err(err).Int("external_id", externalID).Uint("attempt", n+1).Msg("Primary lookup attempt failed")
		}),
		retry.LastErrorOnly(true),
		retry.WithTimer(c.opts.Clock),
	)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Attempts = attempts
		}
		return result, err
	}
	return result, nil
}
