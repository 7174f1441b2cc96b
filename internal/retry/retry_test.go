package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", syscall.ECONNRESET
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if result != "ok" {
		t.Fatalf("unexpected result: %s", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonTransientError(t *testing.T) {
	permanent := errors.New("invalid credentials")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, syscall.ECONNREFUSED
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, syscall.ECONNRESET
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no calls on cancelled context, got %d", calls)
	}
}

func TestDoCustomClassifier(t *testing.T) {
	flaky := errors.New("rate limited")
	policy := fastPolicy(2)
	policy.Classify = func(err error) bool { return errors.Is(err, flaky) }

	calls := 0
	result, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("provider: %w", flaky)
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if result != "recovered" || calls != 2 {
		t.Fatalf("unexpected result %q after %d calls", result, calls)
	}
}

func TestDefaultClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conn reset", syscall.ECONNRESET, true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("bad input"), false},
	}
	for _, tc := range cases {
		if got := DefaultClassify(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
