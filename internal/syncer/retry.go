// internal/syncer/retry.go
package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

const (
	maxSyncAttempts = 3
	retryInterval   = 60 * time.Second
)

// withRetry runs op up to maxSyncAttempts times with a constant interval.
// Errors that are not transient upstream failures stop the retries
// immediately.
func withRetry[T any](ctx context.Context, logger *slog.Logger, op func() (T, error)) (T, error) {
	wrapped := func() (T, error) {
		v, err := op()
		if err != nil && !apperror.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(backoff.NewConstantBackOff(retryInterval)),
		backoff.WithMaxTries(maxSyncAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("transient sync failure, retrying", "error", err, "retry_in", next)
		}),
	)
}
