// Package cache provides the Redis-backed response cache used by the catalog
// client.
//
// Entries are keyed by request path and sorted query parameters. An entry is
// fresh until its Expires time (derived from Cache-Control max-age, then the
// Expires header, then DefaultTTL). Stale entries are kept in Redis for
// StaleGrace so the client can revalidate them with a conditional request
// (If-None-Match / If-Modified-Since) instead of downloading the body again.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Path:  "/movie/top_rated",
//		Query: url.Values{"page": []string{"1"}, "language": []string{"en-US"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch from upstream, then manager.Set(ctx, key, cache.NewEntry(resp, body))
//	case entry.IsExpired():
//		cache.AddConditionalHeaders(req, entry)
//	default:
//		// serve entry.Data
//	}
//
// # Metrics
//
//   - catalog_cache_hits_total{state="fresh"|"stale"}
//   - catalog_cache_misses_total
//   - catalog_cache_not_modified_total
//   - catalog_cache_errors_total{operation}
package cache
