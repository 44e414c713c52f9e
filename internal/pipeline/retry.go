package pipeline

import (
	"context"
	"time"
)

// backoffDelay returns base doubled for every attempt after the first,
// capped at maxDelay. A zero base disables waiting.
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	shift := max(attempt-1, 0)
	if shift > 30 {
		return maxDelay
	}
	delay := base << shift
	if maxDelay > 0 && (delay > maxDelay || delay < base) {
		return maxDelay
	}
	return delay
}

// sleepContext waits d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
