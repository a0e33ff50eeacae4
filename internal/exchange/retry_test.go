package exchange

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffFactor: 2}

	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return &Error{Class: ErrorTransient, Err: errors.New("timeout")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig()

	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		return &Error{Class: ErrorInvalidParam, Err: errors.New("bad symbol")}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retryable error, got %d", attempts)
	}
}

func TestWithRetryExhaustsMaxRetries(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffFactor: 2}

	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		return &Error{Class: ErrorRateLimited, Err: errors.New("too many requests")}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != cfg.MaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", cfg.MaxRetries+1, attempts)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	if !IsRetryable(&Error{Class: ErrorTransient, Err: errors.New("x")}) {
		t.Error("transient errors should be retryable")
	}
	if !IsRetryable(&Error{Class: ErrorRateLimited, Err: errors.New("x")}) {
		t.Error("rate-limited errors should be retryable")
	}
	if IsRetryable(&Error{Class: ErrorRejected, Err: errors.New("x")}) {
		t.Error("rejected errors should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
}
