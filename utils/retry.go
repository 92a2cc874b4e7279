package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff retries fn up to maxRetries times. The wait before attempt n+1 is base*n².
// It gives up early when ctx is cancelled.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func() error, logger *Logger) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * base
			logger.Warn("Retrying (attempt %d/%d) after %v...", attempt+1, maxRetries, backoff)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
			case <-timer.C:
			}
		}
		if err := fn(); err != nil {
			lastErr = err
			logger.Error("Attempt %d failed: %v", attempt+1, err)
			if ctx.Err() != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt+1, lastErr)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", maxRetries, lastErr)
}
