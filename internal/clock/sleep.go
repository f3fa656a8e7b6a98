// Package clock provides helpers for time-related operations.
package clock

import (
	"context"
	"errors"
	"time"
)

// SleepWithContext waits for the duration or returns early if the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Every runs fn right away and then again interval after each run finishes,
// until ctx is done. Cancellation is not reported as an error.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		fn(ctx)
		if err := SleepWithContext(ctx, interval); err != nil {
			return nil
		}
	}
}
