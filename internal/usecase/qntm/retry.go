package qntm

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds attempt count for transient backend failures. The
// pipeline bounds attempts only; per-call timeouts belong to the backend
// adapters.
type RetryPolicy struct {
	Retries  int
	Factor   float64
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy matches the generation pipeline contract: an
// initial attempt plus 3 retries at 1s, 2s, 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:  3,
		Factor:   2,
		MinDelay: time.Second,
		MaxDelay: 8 * time.Second,
	}
}

// Delay returns the backoff before retry attempt (0-based), capped at
// MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.MinDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Factor)
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// sleepFunc waits for the given duration or until the context is done.
// Injected in tests to avoid wall-clock delays.
type sleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs fn sequentially up to 1+Retries times. Each failure is
// logged with the attempt number and remaining retries before waiting.
// Exhaustion returns the last error unchanged.
func withRetry[T any](ctx context.Context, policy RetryPolicy, sleep sleepFunc, logger *slog.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= policy.Retries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		remaining := policy.Retries - attempt
		logger.Warn("attempt failed",
			"op", op,
			"attempt", attempt+1,
			"remaining_retries", remaining,
			"error", err,
		)
		if remaining == 0 {
			break
		}
		if err := sleep(ctx, policy.Delay(attempt)); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}
