package catalog

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

var quietLogger = zerolog.New(os.Stderr).Level(zerolog.Disabled)

func TestWithRetry_SucceedsAfterServerErrors(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetry(), quietLogger, func() error {
		calls++
		if calls < 3 {
			return &APIError{StatusCode: 503, Class: ErrorClassServer}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_Exhausted(t *testing.T) {
	calls := 0
	serverErr := &APIError{StatusCode: 500, Class: ErrorClassServer}
	err := withRetry(context.Background(), fastRetry(), quietLogger, func() error {
		calls++
		return serverErr
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if ClassOf(err) != ErrorClassServer {
		t.Errorf("exhausted error should keep the last error class, got %q", ClassOf(err))
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (MaxAttempts)", calls)
	}
}

func TestWithRetry_ClientErrorNoRetry(t *testing.T) {
	calls := 0
	clientErr := &APIError{StatusCode: 404, Class: ErrorClassClient, Err: ErrNotFound}
	err := withRetry(context.Background(), fastRetry(), quietLogger, func() error {
		calls++
		return clientErr
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("client errors must not report ErrRetryExhausted")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry()
	cfg.InitialBackoff = 50 * time.Millisecond

	calls := 0
	err := withRetry(ctx, cfg, quietLogger, func() error {
		calls++
		cancel()
		return &APIError{StatusCode: 500, Class: ErrorClassServer}
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if calls >= 3 {
		t.Errorf("calls = %d, expected cancellation to stop retries", calls)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        300 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		n        uint
		min, max time.Duration
	}{
		{0, 80 * time.Millisecond, 120 * time.Millisecond},
		{1, 160 * time.Millisecond, 240 * time.Millisecond},
		{5, 240 * time.Millisecond, 360 * time.Millisecond}, // capped
	}

	for _, tt := range tests {
		got := cfg.backoff(tt.n)
		if got < tt.min || got > tt.max {
			t.Errorf("backoff(%d) = %v, want within [%v, %v]", tt.n, got, tt.min, tt.max)
		}
	}
}

func TestRetryConfig_ForClass(t *testing.T) {
	base := DefaultRetryConfig()

	if got := base.forClass(ErrorClassRateLimit); got.InitialBackoff <= base.InitialBackoff {
		t.Errorf("rate limit backoff %v should exceed base %v", got.InitialBackoff, base.InitialBackoff)
	}
	if got := base.forClass(ErrorClassServer); got != base {
		t.Errorf("server errors should use the base config, got %+v", got)
	}
}
