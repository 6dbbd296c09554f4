package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestComputeWithRand(t *testing.T) {
	policy := Policy{Initial: 5 * time.Second, Max: 20 * time.Second, Factor: 2, Jitter: 0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 20 * time.Second}, // clamped to max
	}
	for _, tt := range tests {
		if got := ComputeWithRand(policy, tt.attempt, 0); got != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestComputeJitter(t *testing.T) {
	policy := Policy{Initial: 100 * time.Millisecond, Max: time.Minute, Factor: 2, Jitter: 0.5}
	base := ComputeWithRand(policy, 1, 0)
	jittered := ComputeWithRand(policy, 1, 1)
	if jittered <= base {
		t.Errorf("expected jittered delay > base, got %v <= %v", jittered, base)
	}
	if jittered > 150*time.Millisecond {
		t.Errorf("jitter exceeds 50%%: %v", jittered)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	policy := Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
	calls := 0
	err := Retry(context.Background(), policy, 4, nil, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	policy := Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
	cause := errors.New("still failing")
	err := Retry(context.Background(), policy, 2, nil, func(int) error { return cause })
	if !errors.Is(err, ErrMaxAttemptsExhausted) {
		t.Fatalf("expected ErrMaxAttemptsExhausted, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	policy := Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
	fatal := errors.New("fatal")
	calls := 0
	err := Retry(context.Background(), policy, 5, func(err error) bool { return false }, func(int) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultPolicy(), 3, nil, func(int) error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
