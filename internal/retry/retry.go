package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls WithRetry. The ingestion pipeline itself never retries
// (failures are permanent for a run); this is used for infrastructure such
// as the database connection.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // linear backoff: attempt * Delay
}

func WithRetry(ctx context.Context, policy Policy, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == policy.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, err)
			}

			delay := policy.Delay
			if policy.Backoff {
				delay = time.Duration(attempt) * policy.Delay
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
