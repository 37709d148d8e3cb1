package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type entry struct {
	key   string
	value any
}

// defaults lists every key with its default. Durations are strings so the
// same list can be written as YAML.
var defaults = []entry{
	{"api.base_url", "https://api.themoviedb.org/3"},
	{"api.token", ""},
	{"api.language", "en-US"},
	{"api.user_agent", "movie-catalog/0.1.0"},
	{"api.timeout", "15s"},

	{"retry.max_attempts", 3},
	{"retry.initial_backoff", "500ms"},
	{"retry.max_backoff", "10s"},
	{"retry.multiplier", 2.0},

	{"breaker.enabled", true},
	{"breaker.max_requests", 2},
	{"breaker.interval", "30s"},
	{"breaker.timeout", "20s"},
	{"breaker.failure_threshold", 0.8},
	{"breaker.min_requests", 5},

	{"redis.addr", ""},
	{"redis.password", ""},
	{"redis.db", 0},
	{"redis.favorites_key", "catalog:favorites"},

	{"cache.enabled", true},

	{"loader.min_display", "3s"},
	{"loader.footer_threshold", 1.5},

	{"search.debounce", "450ms"},
	{"search.min_chars", 3},

	{"connectivity.url", ""},
	{"connectivity.interval", "10s"},
	{"connectivity.timeout", "3s"},

	{"log.level", "info"},
	{"log.pretty", false},

	{"server.addr", ":8080"},
	{"server.read_timeout", "10s"},
	{"server.write_timeout", "30s"},
	{"server.shutdown_timeout", "10s"},
}

func setDefaults(v *viper.Viper) {
	for _, e := range defaults {
		v.SetDefault(e.key, e.value)
	}
}

// DefaultConfig returns the configuration with no file or environment
// applied.
func DefaultConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return unmarshal(v)
}

func defaultDocument() map[string]any {
	doc := make(map[string]any)
	for _, e := range defaults {
		section, key, _ := strings.Cut(e.key, ".")
		m, ok := doc[section].(map[string]any)
		if !ok {
			m = make(map[string]any)
			doc[section] = m
		}
		m[key] = e.value
	}
	return doc
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(defaultDocument())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Movie catalog configuration
# Every key can be overridden with MOVIES_<SECTION>_<KEY>, e.g. MOVIES_API_TOKEN

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
