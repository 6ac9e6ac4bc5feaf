package limiter

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const retryAttempts = 3

var retryBaseInterval = 2 * time.Second

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs fn up to three times with exponential backoff starting at
// two seconds. Errors wrapped with Permanent stop immediately, as does
// context cancellation. The retry sits outside any rate limiting, so a
// retried call pays the full toll again.
func Retry(ctx context.Context, log zerolog.Logger, op string, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryBaseInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn(ctx)
		if err != nil && attempt < retryAttempts {
			log.Warn().Str("op", op).Int("attempt", attempt).Err(err).Msg("retrying")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, retryAttempts-1), ctx))
}
