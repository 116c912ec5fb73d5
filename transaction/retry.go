package transaction

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/devicemesh-io/devicecore/core"
)

// runLeafWithRetry executes a leaf, retrying on failure per its
// RetryPolicy using an exponential backoff clock (§4.3 step 3).
// Exhausting retries returns the last error.
func (c *Coordinator) runLeafWithRetry(ctx context.Context, spec ActionSpec) error {
	if spec.Retry == nil {
		return c.runLeaf(ctx, spec)
	}

	policy := spec.Retry
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxElapsedTime = 0 // bounded by MaxAttempts, not elapsed time
		b.MaxInterval = policy.MaxInterval
	}
	b.Reset()

	var lastErr error
	attempts := 0
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	for attempts < maxAttempts {
		attempts++
		lastErr = c.runLeaf(ctx, spec)
		if lastErr == nil {
			return nil
		}
		if attempts >= maxAttempts {
			break
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		if err := sleepCtx(ctx, c.clock, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, clock core.Clock, d time.Duration) error {
	timer := clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
