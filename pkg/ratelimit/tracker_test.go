package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestParseHeaders(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)

	tests := []struct {
		name          string
		status        int
		headers       http.Header
		wantOK        bool
		wantErr       bool
		wantRemaining int
		wantLimit     int
		wantResetAt   time.Time
	}{
		{
			name:    "no quota headers",
			status:  http.StatusOK,
			headers: http.Header{},
		},
		{
			name:   "quota headers",
			status: http.StatusOK,
			headers: http.Header{
				"X-Ratelimit-Limit":     []string{"40"},
				"X-Ratelimit-Remaining": []string{"39"},
				"X-Ratelimit-Reset":     []string{"1760000010"},
			},
			wantOK:        true,
			wantRemaining: 39,
			wantLimit:     40,
			wantResetAt:   time.Unix(1_760_000_010, 0),
		},
		{
			name:          "remaining without reset",
			status:        http.StatusOK,
			headers:       http.Header{"X-Ratelimit-Remaining": []string{"3"}},
			wantOK:        true,
			wantRemaining: 3,
			wantResetAt:   now.Add(time.Second),
		},
		{
			name:    "malformed remaining",
			status:  http.StatusOK,
			headers: http.Header{"X-Ratelimit-Remaining": []string{"lots"}},
			wantErr: true,
		},
		{
			name:          "429 with retry-after seconds",
			status:        http.StatusTooManyRequests,
			headers:       http.Header{"Retry-After": []string{"7"}},
			wantOK:        true,
			wantRemaining: 0,
			wantResetAt:   now.Add(7 * time.Second),
		},
		{
			name:          "429 without retry-after",
			status:        http.StatusTooManyRequests,
			headers:       http.Header{},
			wantOK:        true,
			wantRemaining: 0,
			wantResetAt:   now.Add(DefaultRetryAfter),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, ok, err := parseHeaders(tt.status, tt.headers, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("parseHeaders() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
			if state.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", state.Limit, tt.wantLimit)
			}
			if !state.ResetAt.Equal(tt.wantResetAt) {
				t.Errorf("ResetAt = %v, want %v", state.ResetAt, tt.wantResetAt)
			}
		})
	}
}

func TestRetryAfter_HTTPDate(t *testing.T) {
	now := time.Date(2025, 10, 21, 12, 0, 0, 0, time.UTC)
	value := now.Add(90 * time.Second).Format(http.TimeFormat)

	if got := retryAfter(value, now); got != 90*time.Second {
		t.Errorf("retryAfter() = %v, want 90s", got)
	}
}

func TestTracker_RoundTrip(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	client.FlushDB(ctx)

	tracker := NewTracker(client, zerolog.New(os.Stderr).Level(zerolog.Disabled))

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil || !allowed {
		t.Fatalf("empty state should allow: allowed=%v err=%v", allowed, err)
	}

	if err := tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, http.Header{"Retry-After": []string{"30"}}); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	allowed, err = tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("exhausted window should block")
	}
}
