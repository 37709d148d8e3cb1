// Package search runs debounced title searches against the catalog.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/notify"
	"github.com/Sternrassler/movie-catalog/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "search_requests_total",
	Help: "Search requests by outcome (ok, error, offline, stale)",
}, []string{"outcome"})

// Defaults for Config.
const (
	DefaultDebounce = 450 * time.Millisecond
	DefaultMinChars = 3
)

// Config holds session configuration.
type Config struct {
	Debounce time.Duration
	MinChars int
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{Debounce: DefaultDebounce, MinChars: DefaultMinChars}
}

// State is what a search screen renders.
type State struct {
	Query                string
	Results              []catalog.Movie
	Count                int
	ShowResultsLabel     bool
	ShowEmptyPlaceholder bool
	Loading              bool
}

// Update is delivered to subscribers. Alert is set only for alerts.
type Update struct {
	State State
	Alert *notify.Alert
}

// Session turns typed and submitted text into search requests. Only the
// response to the most recent request is applied.
type Session struct {
	searcher pagination.Searcher
	probe    connectivity.Probe
	clock    pagination.Clock
	config   Config
	logger   zerolog.Logger
	updates  notify.Publisher[Update]
	inflight sync.WaitGroup

	mu         sync.Mutex
	state      State
	lastTyped  *string
	lastIssued string
	generation uint64
	timer      pagination.Timer
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used for debouncing.
func WithClock(c pagination.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithConfig sets debounce and minimum query length.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.config = cfg
	}
}

// NewSession creates a Session.
func NewSession(searcher pagination.Searcher, probe connectivity.Probe, opts ...Option) *Session {
	s := &Session{
		searcher: searcher,
		probe:    probe,
		clock:    pagination.SystemClock(),
		config:   DefaultConfig(),
		logger:   log.With().Str("component", "search").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.MinChars <= 0 {
		s.config.MinChars = DefaultMinChars
	}
	if s.probe == nil {
		s.probe = connectivity.NewStatic(true)
	}
	return s
}

// Subscribe registers fn for state changes and alerts.
func (s *Session) Subscribe(fn func(Update)) (cancel func()) {
	_, cancel = s.updates.Subscribe(fn)
	return cancel
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Input handles typed text. Text equal to the previous input after
// trimming is ignored; otherwise the query runs once typing pauses for
// the debounce interval.
func (s *Session) Input(ctx context.Context, text string) {
	q := strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastTyped != nil && *s.lastTyped == q {
		return
	}
	s.lastTyped = &q

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.config.Debounce, func() {
		s.handle(ctx, q, false)
	})
}

// Submit runs text immediately, even if it equals the last query.
func (s *Session) Submit(ctx context.Context, text string) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.handle(ctx, strings.TrimSpace(text), true)
}

// Wait blocks until every issued request has completed.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) handle(ctx context.Context, q string, force bool) {
	s.mu.Lock()

	if utf8.RuneCountInString(q) < s.config.MinChars {
		s.lastIssued = ""
		s.generation++
		s.state = State{Query: q}
		st := s.state
		s.mu.Unlock()
		s.updates.Publish(Update{State: st})
		return
	}

	if !force && q == s.lastIssued {
		s.mu.Unlock()
		return
	}
	s.lastIssued = q

	if !s.probe.IsConnected() {
		s.generation++
		s.state.Loading = false
		st := s.state
		s.mu.Unlock()
		searchesTotal.WithLabelValues("offline").Inc()
		s.logger.Info().Str("query", q).Msg("Offline - search skipped")
		alert := notify.NoInternet()
		s.updates.Publish(Update{State: st, Alert: &alert})
		return
	}

	s.generation++
	gen := s.generation
	s.state.Query = q
	s.state.Loading = true
	st := s.state
	s.inflight.Add(1)
	s.mu.Unlock()

	s.updates.Publish(Update{State: st})

	go func() {
		defer s.inflight.Done()
		page, err := s.searcher.SearchPage(ctx, q, 1)
		s.complete(gen, q, page, err)
	}()
}

func (s *Session) complete(gen uint64, q string, page *catalog.Page, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		searchesTotal.WithLabelValues("stale").Inc()
		s.logger.Debug().Str("query", q).Msg("Stale search response dropped")
		return
	}

	var results []catalog.Movie
	if err == nil && page != nil {
		results = page.Results
	}
	s.state = State{
		Query:                q,
		Results:              results,
		Count:                len(results),
		ShowResultsLabel:     true,
		ShowEmptyPlaceholder: len(results) == 0,
	}
	st := s.state
	s.mu.Unlock()

	if err != nil {
		searchesTotal.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("query", q).Msg("Search failed")
		alert := notify.Error(err.Error())
		s.updates.Publish(Update{State: st, Alert: &alert})
		return
	}

	searchesTotal.WithLabelValues("ok").Inc()
	s.logger.Debug().Str("query", q).Int("results", len(results)).Msg("Search done")
	s.updates.Publish(Update{State: st})
}
