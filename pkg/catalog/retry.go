package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// forClass scales the base configuration for an error class.
// Rate limiting waits longer, server errors recover quickly.
func (c RetryConfig) forClass(class ErrorClass) RetryConfig {
	switch class {
	case ErrorClassRateLimit:
		c.InitialBackoff *= 4
		c.MaxBackoff *= 3
	case ErrorClassNetwork:
		c.InitialBackoff *= 2
	}
	return c
}

// backoff returns the jittered delay before attempt n+1 (n starts at 0).
func (c RetryConfig) backoff(n uint) time.Duration {
	d := float64(c.InitialBackoff)
	for i := uint(0); i < n; i++ {
		d *= c.BackoffMultiplier
		if time.Duration(d) > c.MaxBackoff {
			d = float64(c.MaxBackoff)
			break
		}
	}
	// ±20% jitter
	return time.Duration(d * (0.8 + rand.Float64()*0.4))
}

// withRetry executes fn with class-aware exponential backoff.
// Non-retriable errors are returned unchanged after the first attempt.
func withRetry(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	attempts := 0
	var lastErr error

	err := retry.Do(
		func() error {
			attempts++
			lastErr = fn()
			if lastErr != nil && !shouldRetry(ClassOf(lastErr)) {
				return retry.Unrecoverable(lastErr)
			}
			if lastErr == nil && attempts > 1 {
				logger.Info().Int("attempt", attempts).Msg("Request succeeded after retry")
			}
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(cfg.MaxAttempts)),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			class := ClassOf(err)
			d := cfg.forClass(class).backoff(n)
			retryBackoffSeconds.WithLabelValues(string(class)).Observe(d.Seconds())
			return d
		}),
		retry.OnRetry(func(n uint, err error) {
			class := ClassOf(err)
			retriesTotal.WithLabelValues(string(class)).Inc()
			logger.Debug().
				Err(err).
				Str("error_class", string(class)).
				Uint("attempt", n+1).
				Msg("Retrying request after backoff")
		}),
	)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil && !errors.Is(lastErr, ctx.Err()) {
		logger.Warn().Int("attempt", attempts).Msg("Context cancelled during retry backoff")
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	}

	class := ClassOf(lastErr)
	if !shouldRetry(class) || attempts < cfg.MaxAttempts {
		return lastErr
	}

	retryExhaustedTotal.WithLabelValues(string(class)).Inc()
	logger.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
