package config

import (
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/logging"
	"github.com/Sternrassler/movie-catalog/pkg/search"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

// Config is the complete application configuration.
type Config struct {
	API          APIConfig          `mapstructure:"api"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Breaker      BreakerConfig      `mapstructure:"breaker"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Loader       LoaderConfig       `mapstructure:"loader"`
	Search       SearchConfig       `mapstructure:"search"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Log          LogConfig          `mapstructure:"log"`
	Server       ServerConfig       `mapstructure:"server"`
}

// APIConfig configures the catalog API. Token may be empty until a
// command talks to the API.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Token     string        `mapstructure:"token"`
	Language  string        `mapstructure:"language"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" validate:"gtefield=InitialBackoff"`
	Multiplier     float64       `mapstructure:"multiplier" validate:"gte=1"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests" validate:"gte=1"`
	Interval         time.Duration `mapstructure:"interval" validate:"gte=0"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	FailureThreshold float64       `mapstructure:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

// RedisConfig configures the shared Redis. An empty Addr disables the
// response cache and keeps favorites in memory.
type RedisConfig struct {
	Addr         string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db" validate:"gte=0,lte=15"`
	FavoritesKey string `mapstructure:"favorites_key" validate:"required"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoaderConfig struct {
	MinDisplay      time.Duration `mapstructure:"min_display" validate:"gte=0"`
	FooterThreshold float64       `mapstructure:"footer_threshold" validate:"gt=0"`
}

type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
	MinChars int           `mapstructure:"min_chars" validate:"gte=1"`
}

// ConnectivityConfig configures the reachability monitor. An empty URL
// treats the network as always available.
type ConnectivityConfig struct {
	URL      string        `mapstructure:"url" validate:"omitempty,url"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error disabled"`
	Pretty bool   `mapstructure:"pretty"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CatalogClientConfig builds the catalog client configuration. rdb may be nil.
func (c *Config) CatalogClientConfig(rdb redis.Cmdable) catalog.Config {
	cfg := catalog.DefaultConfig(c.API.Token)
	cfg.BaseURL = c.API.BaseURL
	cfg.Language = c.API.Language
	if c.API.UserAgent != "" {
		cfg.UserAgent = c.API.UserAgent
	}
	cfg.Timeout = c.API.Timeout
	cfg.Redis = rdb
	cfg.CacheEnabled = c.Cache.Enabled
	cfg.Retry = catalog.RetryConfig{
		MaxAttempts:       c.Retry.MaxAttempts,
		InitialBackoff:    c.Retry.InitialBackoff,
		MaxBackoff:        c.Retry.MaxBackoff,
		BackoffMultiplier: c.Retry.Multiplier,
	}
	cfg.Breaker = catalog.BreakerConfig{
		Enabled:          c.Breaker.Enabled,
		MaxRequests:      c.Breaker.MaxRequests,
		Interval:         c.Breaker.Interval,
		Timeout:          c.Breaker.Timeout,
		FailureThreshold: c.Breaker.FailureThreshold,
		MinRequests:      c.Breaker.MinRequests,
	}
	return cfg
}

// RedisOptions returns client options, or nil when Redis is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if c.Redis.Addr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// LoggerConfig builds the logging configuration writing to out.
func (c *Config) LoggerConfig(out io.Writer) logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Config{Level: level, Pretty: c.Log.Pretty, Output: out}
}

// SearchSessionConfig builds the search session configuration.
func (c *Config) SearchSessionConfig() search.Config {
	return search.Config{Debounce: c.Search.Debounce, MinChars: c.Search.MinChars}
}

// MonitorConfig builds the connectivity monitor configuration. ok is
// false when no probe URL is configured.
func (c *Config) MonitorConfig() (cfg connectivity.MonitorConfig, ok bool) {
	if c.Connectivity.URL == "" {
		return connectivity.MonitorConfig{}, false
	}
	return connectivity.MonitorConfig{
		URL:      c.Connectivity.URL,
		Interval: c.Connectivity.Interval,
		Timeout:  c.Connectivity.Timeout,
	}, true
}
