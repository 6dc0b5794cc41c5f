package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitUntil(t *testing.T) {
	orig := sleep
	t.Cleanup(func() { sleep = orig })

	var slept int
	sleep = func(time.Duration) { slept++ }

	calls := 0
	err := WaitUntil(context.Background(), time.Second, 5, func() bool {
		calls++
		return calls == 3
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 2 {
		t.Fatalf("expected 2 sleeps, got %d", slept)
	}

	err = WaitUntil(context.Background(), time.Second, 2, func() bool { return false })
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWaitForCancelled(t *testing.T) {
	orig := sleep
	t.Cleanup(func() { sleep = orig })

	release := make(chan struct{})
	sleep = func(time.Duration) { <-release }
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WaitFor(ctx, 0); err != nil {
		t.Fatalf("zero duration should not wait: %v", err)
	}
}
