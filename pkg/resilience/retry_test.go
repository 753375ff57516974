package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "connect", fastConfig(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("refused")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	want := errors.New("refused")
	calls := 0
	err := Retry(context.Background(), "connect", fastConfig(2), func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 2 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "connect", RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("refused")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestComputeDelayBounded(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2, JitterFraction: 0.1}
	for attempt := 1; attempt <= 10; attempt++ {
		d := computeDelay(attempt, cfg)
		if d < 0 || d > cfg.MaxDelay {
			t.Errorf("attempt %d delay %v out of range", attempt, d)
		}
	}
}
