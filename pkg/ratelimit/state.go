// Package ratelimit tracks the upstream request quota advertised through
// X-RateLimit-* and Retry-After headers and gates requests while the quota
// window is exhausted. State lives in Redis so every client process sharing
// an API token sees the same window.
package ratelimit

import (
	"time"
)

// RedisKeyState stores the JSON-encoded State.
const RedisKeyState = "catalog:rate_limit:state"

// Thresholds for rate limit decisions.
const (
	// ThrottleThreshold slows requests down when fewer requests remain.
	ThrottleThreshold = 5

	// DefaultRetryAfter is used for a 429 without a usable Retry-After header.
	DefaultRetryAfter = 10 * time.Second
)

// State is the most recently observed upstream quota.
type State struct {
	// Limit is the window size from X-RateLimit-Limit (0 when unknown).
	Limit int `json:"limit"`

	// Remaining requests in the current window from X-RateLimit-Remaining.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets (X-RateLimit-Reset or Retry-After).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was observed.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsExhausted reports whether requests must wait for the window reset.
func (s *State) IsExhausted() bool {
	return s.Remaining <= 0 && time.Now().Before(s.ResetAt)
}

// NeedsThrottling reports whether the quota is nearly used up.
func (s *State) NeedsThrottling() bool {
	return !s.IsExhausted() && s.Remaining > 0 && s.Remaining < ThrottleThreshold &&
		time.Now().Before(s.ResetAt)
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
