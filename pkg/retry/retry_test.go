package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Do(context.Background(), Config{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), Config{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() (int, error) {
		calls++
		return 0, errors.New("down")
	})
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Config{MaxAttempts: 5, InitialDelay: time.Hour}, func() (int, error) {
		return 0, errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
