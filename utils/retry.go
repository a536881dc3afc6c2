package utils

import (
	"context"
	"fmt"
	"time"
)

// DelaySchedule returns the delay to wait after a failed attempt. Attempts
// are numbered from 1.
type DelaySchedule func(attempt int) time.Duration

// FixedDelay waits the same duration between every attempt.
func FixedDelay(d time.Duration) DelaySchedule {
	return func(int) time.Duration { return d }
}

// LinearDelay waits base, 2*base, 3*base, ...
func LinearDelay(base time.Duration) DelaySchedule {
	return func(attempt int) time.Duration { return time.Duration(attempt) * base }
}

// ExponentialDelay waits base, 2*base, 4*base, ...
func ExponentialDelay(base time.Duration) DelaySchedule {
	return func(attempt int) time.Duration { return base << (attempt - 1) }
}

// Retry runs op up to attempts times, sleeping per the schedule between
// failures. The sleep respects context cancellation. On exhaustion the last
// error is returned, wrapped with the attempt count so the caller can tell a
// retried failure from a one-shot one.
func Retry(ctx context.Context, attempts int, schedule DelaySchedule, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleepCtx(ctx, schedule(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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

// SleepCtx exposes the context-aware sleep for callers that pause outside a
// retry loop (the entitlement grace check).
func SleepCtx(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}
