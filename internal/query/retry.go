package query

import (
	"context"
	"time"

	"github.com/anle/alumnet/internal/remoteerr"
)

// Retryer runs an operation with bounded retries. *health.Monitor satisfies
// this; the default used when none is injected retries blindly with the
// same backoff shape but no connectivity probe.
type Retryer interface {
	ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) error, maxRetries int) error
}

type backoffRetryer struct {
	base time.Duration
}

func (r backoffRetryer) ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) error, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(r.base * (1 << uint(attempt-1)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return remoteerr.Normalize(lastErr)
			case <-timer.C:
			}
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return remoteerr.Normalize(lastErr)
}
