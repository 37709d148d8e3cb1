package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// Enabled turns the breaker on. A disabled breaker passes every call through.
	Enabled bool

	// MaxRequests allowed while half-open.
	MaxRequests uint32

	// Interval after which closed-state counts are cleared.
	Interval time.Duration

	// Timeout spent open before probing with half-open requests.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker.
	FailureThreshold float64

	// MinRequests before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns the default circuit breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      2,
		Interval:         30 * time.Second,
		Timeout:          20 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(name string, cfg BreakerConfig, logger zerolog.Logger) *breaker {
	if !cfg.Enabled {
		return &breaker{}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		// Client errors say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || ClassOf(err) == ErrorClassClient || ClassOf(err) == ErrorClassDecode
		},
	})
	breakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &breaker{cb: cb}
}

// do runs fn through the breaker.
func (b *breaker) do(fn func() ([]byte, error)) ([]byte, error) {
	if b.cb == nil {
		return fn()
	}

	v, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	body, _ := v.([]byte)
	return body, nil
}
