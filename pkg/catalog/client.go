// Package catalog provides the HTTP client for the remote movie catalog
// (a TMDB-compatible JSON API) with retry, circuit breaking, response
// caching, and upstream rate limit tracking.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/cache"
	"github.com/Sternrassler/movie-catalog/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// API paths.
const (
	PathTopRated = "/movie/top_rated"
	PathSearch   = "/search/movie"
	pathMovie    = "/movie/"
)

// Client is the catalog API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	breaker     *breaker
	flight      singleflight.Group
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, e.g. "https://api.themoviedb.org/3"
	BaseURL string

	// Token is the bearer token sent with every request (REQUIRED)
	Token string

	// Language is sent as the "language" query parameter
	Language string

	// UserAgent header
	UserAgent string

	// Timeout per HTTP round trip
	Timeout time.Duration

	// Redis enables the response cache and shared rate limit state when set
	Redis redis.Cmdable

	// CacheEnabled toggles the response cache (requires Redis)
	CacheEnabled bool

	Retry   RetryConfig
	Breaker BreakerConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:      "https://api.themoviedb.org/3",
		Token:        token,
		Language:     "en-US",
		UserAgent:    "movie-catalog/0.1.0",
		Timeout:      15 * time.Second,
		CacheEnabled: true,
		Retry:        DefaultRetryConfig(),
		Breaker:      DefaultBreakerConfig(),
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("api token is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		breaker:    newBreaker("catalog", cfg.Breaker, logger),
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		if cfg.CacheEnabled {
			c.cache = cache.NewManager(cfg.Redis)
		}
	}

	return c, nil
}

// FetchPage fetches one page of the top rated listing.
func (c *Client) FetchPage(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}

	var p Page
	query := url.Values{"page": []string{strconv.Itoa(page)}}
	if err := c.getJSON(ctx, PathTopRated, query, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPage fetches one page of search results for query.
func (c *Client) SearchPage(ctx context.Context, query string, page int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is required")
	}

	var p Page
	params := url.Values{
		"query": []string{query},
		"page":  []string{strconv.Itoa(page)},
	}
	if err := c.getJSON(ctx, PathSearch, params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchDetails fetches the full record of one movie.
func (c *Client) FetchDetails(ctx context.Context, id int) (*MovieDetails, error) {
	var d MovieDetails
	if err := c.getJSON(ctx, pathMovie+strconv.Itoa(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// getJSON performs a GET and decodes the body into out. Identical
// concurrent requests share one round trip. The shared round trip is not
// cancelled by any single caller; each caller stops waiting when its own
// context is done.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	if c.config.Language != "" {
		query.Set("language", c.config.Language)
	}

	key := cache.Key{Path: path, Query: query}
	ch := c.flight.DoChan(key.String(), func() (interface{}, error) {
		return c.get(context.WithoutCancel(ctx), key)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.Shared {
		sharedRequestsTotal.Inc()
	}
	if res.Err != nil {
		return res.Err
	}

	body, _ := res.Val.([]byte)
	if err := json.Unmarshal(body, out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{
			StatusCode: http.StatusOK,
			Class:      ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}
	return nil
}

// get returns the response body for key: rate limit gate, cache lookup,
// conditional request, retry and circuit breaker.
func (c *Client) get(ctx context.Context, key cache.Key) ([]byte, error) {
	endpoint := key.Path
	if strings.HasPrefix(endpoint, pathMovie) && endpoint != PathTopRated {
		endpoint = pathMovie + "{id}"
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache
	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil && !entry.IsExpired():
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return entry.Data, nil
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Check rate limit
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Rate limit check failed")
		} else if !allowed {
			requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return nil, &APIError{
				StatusCode: http.StatusTooManyRequests,
				Class:      ErrorClassRateLimit,
				Message:    "blocked locally",
				Err:        ErrRateLimited,
			}
		}
	}

	// Step 3: Round trip with retry inside the breaker
	var notModified bool
	var respHeader http.Header
	body, err := c.breaker.do(func() ([]byte, error) {
		var body []byte
		err := withRetry(ctx, c.config.Retry, c.logger, func() error {
			var err error
			body, respHeader, notModified, err = c.roundTrip(ctx, key, endpoint, cached)
			return err
		})
		return body, err
	})
	if err != nil {
		return nil, err
	}

	// Step 4: 304 - serve the revalidated entry
	if notModified && cached != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		if err := c.cache.Revalidated(ctx, key, cached, respHeader); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cached.Data, nil
	}

	return body, nil
}

// roundTrip performs a single HTTP request.
func (c *Client) roundTrip(ctx context.Context, key cache.Key, endpoint string, cached *cache.Entry) ([]byte, http.Header, bool, error) {
	reqURL := c.baseURL + key.Path
	if len(key.Query) > 0 {
		reqURL += "?" + key.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if cached != nil {
		cache.AddConditionalHeaders(req, cached)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", key.Query.Encode()).
		Msg("Executing catalog request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, nil, false, networkError(err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		return nil, resp.Header, true, nil
	}

	if resp.StatusCode >= 400 {
		apiErr := statusError(resp)
		errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Msg("Catalog request error")
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, false, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, nil, false, networkError(fmt.Errorf("read response body: %w", err))
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry := cache.NewEntry(resp, body)
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return body, resp.Header, false, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
