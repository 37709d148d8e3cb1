// Package testutil provides testing utilities for the movie catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockMovie is the catalog record served by MockCatalog.
type MockMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	VoteAverage float64 `json:"vote_average"`
}

type mockPage struct {
	Page         int         `json:"page"`
	Results      []MockMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// MockCatalog is a configurable mock catalog API server. By default it
// serves a paginated top rated listing, title search, and per-movie details
// from the configured movies.
type MockCatalog struct {
	server *httptest.Server

	mu          sync.RWMutex
	movies      []MockMovie
	pageSize    int
	handlers    map[string]func(w http.ResponseWriter, r *http.Request)
	failPages   map[int]int
	pageDelays  map[int]time.Duration
	requests    int
	conditional int
	pageLog     []int
	lastHeader  http.Header
	etag        string
}

// NewMockCatalog creates a mock server serving movies in pages of pageSize.
func NewMockCatalog(movies []MockMovie, pageSize int) *MockCatalog {
	if pageSize <= 0 {
		pageSize = 20
	}
	m := &MockCatalog{
		movies:     movies,
		pageSize:   pageSize,
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		failPages:  make(map[int]int),
		pageDelays: make(map[int]time.Duration),
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// GenerateMovies returns n movies with ids 1..n.
func GenerateMovies(n int) []MockMovie {
	movies := make([]MockMovie, 0, n)
	for i := 1; i <= n; i++ {
		movies = append(movies, MockMovie{
			ID:          i,
			Title:       fmt.Sprintf("Movie %03d", i),
			PosterPath:  fmt.Sprintf("/poster%d.jpg", i),
			ReleaseDate: "1999-03-31",
			VoteAverage: float64(i%10) + 0.5,
		})
	}
	return movies
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// FailPage makes the next times requests for a listing page answer 500.
func (m *MockCatalog) FailPage(page, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPages[page] = times
}

// DelayPage delays every response for a listing page.
func (m *MockCatalog) DelayPage(page int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageDelays[page] = d
}

// EnableETag makes listing responses carry an ETag and honor If-None-Match.
func (m *MockCatalog) EnableETag(etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etag = etag
}

// RequestCount returns the number of requests served.
func (m *MockCatalog) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests
}

// ConditionalCount returns the number of conditional requests received.
func (m *MockCatalog) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditional
}

// RequestedPages returns listing pages in request order.
func (m *MockCatalog) RequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.pageLog...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockCatalog) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = 0
	m.conditional = 0
	m.pageLog = nil
	m.lastHeader = nil
}

func (m *MockCatalog) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests++
	m.lastHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.conditional++
	}
	handler, custom := m.handlers[r.URL.Path]
	m.mu.Unlock()

	if custom {
		handler(w, r)
		return
	}

	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status_message": "Invalid API key"})
		return
	}

	switch {
	case r.URL.Path == "/movie/top_rated":
		m.serveListing(w, r, m.movies)
	case r.URL.Path == "/search/movie":
		m.serveListing(w, r, m.search(r.URL.Query().Get("query")))
	case strings.HasPrefix(r.URL.Path, "/movie/"):
		m.serveDetails(w, strings.TrimPrefix(r.URL.Path, "/movie/"))
	default:
		http.NotFound(w, r)
	}
}

func (m *MockCatalog) serveListing(w http.ResponseWriter, r *http.Request, movies []MockMovie) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	m.mu.Lock()
	if r.URL.Path == "/movie/top_rated" {
		m.pageLog = append(m.pageLog, page)
	}
	delay := m.pageDelays[page]
	fail := m.failPages[page] > 0
	if fail {
		m.failPages[page]--
	}
	etag := m.etag
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status_message": "Internal error"})
		return
	}

	if etag != "" {
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "max-age=0")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	totalPages := (len(movies) + m.pageSize - 1) / m.pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * m.pageSize
	end := start + m.pageSize
	if start > len(movies) {
		start = len(movies)
	}
	if end > len(movies) {
		end = len(movies)
	}

	writeJSON(w, http.StatusOK, mockPage{
		Page:         page,
		Results:      append([]MockMovie{}, movies[start:end]...),
		TotalPages:   totalPages,
		TotalResults: len(movies),
	})
}

func (m *MockCatalog) serveDetails(w http.ResponseWriter, idStr string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"status_message": "not found"})
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, movie := range m.movies {
		if movie.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":           movie.ID,
				"title":        movie.Title,
				"overview":     movie.Overview,
				"poster_path":  movie.PosterPath,
				"release_date": movie.ReleaseDate,
				"vote_average": movie.VoteAverage,
				"runtime":      120,
				"genres":       []map[string]any{{"id": 18, "name": "Drama"}},
			})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"status_message": "The resource you requested could not be found."})
}

func (m *MockCatalog) search(query string) []MockMovie {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	var found []MockMovie
	for _, movie := range m.movies {
		if query != "" && strings.Contains(strings.ToLower(movie.Title), query) {
			found = append(found, movie)
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].VoteAverage > found[j].VoteAverage })
	return found
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status_message": "Internal error"}`,
		Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 response with Retry-After.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status_message": "Request count over limit"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}
