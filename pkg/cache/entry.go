package cache

import (
	"time"
)

// Entry is a cached catalog response body with its validators.
type Entry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag,omitempty"`

	// Expires is when the entry stops being fresh
	Expires time.Time `json:"expires"`

	// LastModified for conditional requests (If-Modified-Since)
	LastModified time.Time `json:"last_modified,omitempty"`

	// StatusCode of the cached response
	StatusCode int `json:"status_code"`

	// CachedAt is when the entry was stored
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true once the entry is no longer fresh.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether the entry carries a validator.
func (e *Entry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
