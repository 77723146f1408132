package resilience

import (
	"context"
	"time"
)

// Policy configures one retried call. MaxRetries counts additional
// attempts after the first, so the operation runs at most MaxRetries+1
// times. An empty Breaker name disables breaker gating.
type Policy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Exponential bool
	Breaker     string
}

// Retry runs op under the policy. The last error is surfaced unchanged
// after retries exhaust. A rejection by an open breaker is returned
// immediately without invoking op, and a context error stops retrying
// without counting against the breaker.
func (r *Registry) Retry(ctx context.Context, policy Policy, op func(context.Context) error) error {
	var breaker *Breaker
	if policy.Breaker != "" {
		breaker = r.Breaker(policy.Breaker)
	}

	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if breaker != nil {
			if err := breaker.Allow(); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}

			return nil
		}

		if ctx.Err() != nil {
			// Cancellation is not a resource failure.
			return lastErr
		}

		if breaker != nil {
			breaker.RecordFailure()
		}

		if attempt == policy.MaxRetries {
			break
		}

		if err := sleep(ctx, backoffDelay(policy, attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

// backoffDelay computes the sleep before retrying attempt i:
// min(base*2^i, max) in exponential mode, constant base otherwise.
func backoffDelay(policy Policy, attempt int) time.Duration {
	if !policy.Exponential {
		return policy.BaseDelay
	}

	delay := policy.BaseDelay << uint(attempt)
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		return policy.MaxDelay
	}

	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
