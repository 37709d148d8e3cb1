package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// StaleGrace is how long an expired entry is kept for revalidation.
const StaleGrace = 24 * time.Hour

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with a Redis backend.
type Manager struct {
	redis redis.Cmdable
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient redis.Cmdable) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis: redisClient,
	}
}

// Get retrieves an entry by key. Stale entries are returned as well;
// callers check IsExpired and revalidate. Returns ErrCacheMiss when absent.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			Misses.Inc()
			return nil, ErrCacheMiss
		}
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		if !entry.CanRevalidate() {
			_ = m.Delete(ctx, key)
			Misses.Inc()
			return nil, ErrCacheMiss
		}
		Hits.WithLabelValues("stale").Inc()
	} else {
		Hits.WithLabelValues("fresh").Inc()
	}

	return &entry, nil
}

// Set stores an entry. Redis expiry is the freshness TTL plus StaleGrace
// for revalidatable entries; non-revalidatable entries that are already
// stale are not stored.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if entry.CanRevalidate() {
		ttl += StaleGrace
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		Errors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Revalidated records a 304 for entry: its expiry is refreshed from the
// response headers and it is stored again.
func (m *Manager) Revalidated(ctx context.Context, key Key, entry *Entry, headers http.Header) error {
	NotModified.Inc()
	entry.Expires = expiresFrom(headers, time.Now())
	return m.Set(ctx, key, entry)
}
