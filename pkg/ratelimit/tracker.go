package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	remainingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_remaining",
		Help: "Requests remaining in the current upstream rate limit window",
	})

	blocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the upstream window was exhausted",
	})

	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the upstream window was nearly exhausted",
	})
)

// Tracker records upstream quota headers and gates requests.
type Tracker struct {
	redis         redis.Cmdable
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient redis.Cmdable, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: 250 * time.Millisecond,
	}
}

// GetState retrieves the current state. A healthy default is returned when
// nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	data, err := t.redis.Get(ctx, RedisKeyState).Bytes()
	if errors.Is(err, redis.Nil) {
		return &State{Remaining: -1, LastUpdate: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse rate limit state: %w", err)
	}
	return &state, nil
}

// UpdateFromResponse parses the quota headers of a response and stores the
// new state. Responses without quota headers leave the state untouched,
// except 429 which always closes the window.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	state, ok, err := parseHeaders(status, headers, time.Now())
	if err != nil || !ok {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal rate limit state: %w", err)
	}

	// keep the state a little past the reset so a late reader still sees it
	expiry := state.TimeUntilReset() + time.Minute
	if err := t.redis.Set(ctx, RedisKeyState, data, expiry).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	remainingGauge.Set(float64(state.Remaining))

	switch {
	case state.IsExhausted():
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Upstream rate limit exhausted - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Upstream rate limit nearly exhausted - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Msg("Upstream rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest returns false while the window is exhausted. When the
// window is nearly exhausted it delays the caller briefly before allowing.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.IsExhausted() {
		t.logger.Warn().
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Upstream rate limit exhausted - blocking request")
		blocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		throttlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}

// parseHeaders extracts quota state. ok is false when the response carries
// no quota information.
func parseHeaders(status int, headers http.Header, now time.Time) (*State, bool, error) {
	state := &State{LastUpdate: now, Remaining: -1}

	if status == http.StatusTooManyRequests {
		state.Remaining = 0
		state.ResetAt = now.Add(retryAfter(headers.Get("Retry-After"), now))
		if limit, err := parseIntHeader(headers.Get("X-RateLimit-Limit")); err == nil {
			state.Limit = limit
		}
		return state, true, nil
	}

	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return nil, false, nil
	}

	remain, err := parseIntHeader(remainStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}
	state.Remaining = remain

	if limit, err := parseIntHeader(headers.Get("X-RateLimit-Limit")); err == nil {
		state.Limit = limit
	}

	resetStr := headers.Get("X-RateLimit-Reset")
	if resetStr == "" {
		state.ResetAt = now.Add(time.Second)
		return state, true, nil
	}
	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
	}
	state.ResetAt = time.Unix(reset, 0)

	return state, true, nil
}

// retryAfter parses Retry-After as delta seconds or an HTTP date.
func retryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return DefaultRetryAfter
}

func parseIntHeader(value string) (int, error) {
	if value == "" {
		return 0, errors.New("empty header")
	}
	return strconv.Atoi(value)
}
