package utils

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by WaitUntil when the condition never held.
var ErrTimeout = errors.New("timed out waiting for condition")

var sleep = time.Sleep

// WaitFor sleeps for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// WaitUntil polls cond every interval, at most attempts times.
func WaitUntil(ctx context.Context, interval time.Duration, attempts int, cond func() bool) error {
	for i := 0; i < attempts; i++ {
		if cond() {
			return nil
		}
		if err := WaitFor(ctx, interval); err != nil {
			return err
		}
	}
	if cond() {
		return nil
	}
	return ErrTimeout
}
