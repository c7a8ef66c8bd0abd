package extractor

import (
	"context"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// withRetry runs fn with exponential backoff, giving up after MaxRetries
// retries or when ctx is done.
func (c *Coordinator) withRetry(ctx context.Context, logger *zap.Logger, op string, fn func() error) error {
	maxRetries := c.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retry.Do(fn,
		retry.Attempts(uint(maxRetries)+1),
		retry.Delay(c.cfg.RetryBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Warn(op+" failed", zap.Uint("attempt", attempt+1), zap.Error(err))
		}),
	)
}
