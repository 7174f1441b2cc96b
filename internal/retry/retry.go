// Package retry runs fallible calls with bounded exponential backoff.
// Only errors classified as transient are retried; everything else
// propagates immediately.
package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Classify reports whether an error is worth retrying.
	// Defaults to DefaultClassify.
	Classify func(error) bool
}

// ModelCalls is the policy for language-model and embedding calls.
func ModelCalls() Policy {
	return Policy{Attempts: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// StorageCalls is the policy for store lookups.
func StorageCalls() Policy {
	return Policy{Attempts: 2, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Do runs fn until it succeeds, the attempt budget is spent, or the error is
// not transient. The zero-value result is returned alongside the last error.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = 500 * time.Millisecond
	}
	if policy.MaxDelay < policy.InitialDelay {
		policy.MaxDelay = policy.InitialDelay
	}
	classify := policy.Classify
	if classify == nil {
		classify = DefaultClassify
	}

	delay := policy.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !classify(err) || attempt == policy.Attempts {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return zero, lastErr
}

// DefaultClassify treats network resets and timeouts as transient.
// Provider-specific codes (HTTP 429/5xx) are layered on by callers.
func DefaultClassify(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	return false
}
