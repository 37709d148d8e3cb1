package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces all cache keys in Redis.
const KeyPrefix = "catalog:cache"

// Key identifies a cached catalog response.
type Key struct {
	// Path is the API path, e.g. "/movie/top_rated"
	Path string

	// Query holds the request query parameters
	Query url.Values
}

// String generates a deterministic key.
//
// Example:
//
//	catalog:cache:movie/top_rated:language=en-US:page=2
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if p := strings.Trim(k.Path, "/"); p != "" {
		parts = append(parts, p)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
