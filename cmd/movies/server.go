package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/details"
	"github.com/Sternrassler/movie-catalog/pkg/favorites"
	"github.com/Sternrassler/movie-catalog/pkg/metrics"
	"github.com/Sternrassler/movie-catalog/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// catalogAPI is the part of the catalog client the server proxies.
type catalogAPI interface {
	pagination.PageFetcher
	pagination.Searcher
	details.Fetcher
}

type server struct {
	api       catalogAPI
	favorites *favorites.Service
	loader    *favorites.Loader
	probe     connectivity.Probe
	ping      func(ctx context.Context) error
	logger    zerolog.Logger
}

// newServer creates the HTTP API. ping checks backing services for
// /ready and may be nil.
func newServer(api catalogAPI, favs *favorites.Service, probe connectivity.Probe, ping func(ctx context.Context) error) *server {
	return &server{
		api:       api,
		favorites: favs,
		loader:    favorites.NewLoader(favs, api, 0),
		probe:     probe,
		ping:      ping,
		logger:    log.With().Str("component", "server").Logger(),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/movies", s.listMovies)
		r.Get("/movies/{id}", s.movieDetails)
		r.Get("/search", s.search)

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", s.listFavorites)
			r.Post("/{id}", s.addFavorite)
			r.Delete("/{id}", s.removeFavorite)
		})
	})

	return r
}

func requestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	if !s.probe.IsConnected() {
		http.Error(w, "catalog unreachable", http.StatusServiceUnavailable)
		return
	}
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *server) listMovies(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	p, err := s.api.FetchPage(r.Context(), page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "query parameter q is required"})
		return
	}
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	p, err := s.api.SearchPage(r.Context(), q, page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type detailsResponse struct {
	*catalog.MovieDetails
	IsFavorite bool `json:"is_favorite"`
}

func (s *server) movieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	d, err := s.api.FetchDetails(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fav, err := s.favorites.IsFavorite(r.Context(), id)
	if err != nil {
		s.logger.Warn().Err(err).Int("movie_id", id).Msg("Favorite lookup failed")
	}
	writeJSON(w, http.StatusOK, detailsResponse{MovieDetails: d, IsFavorite: fav})
}

type favoritesResponse struct {
	Results []catalog.Movie `json:"results"`
	Error   string          `json:"error,omitempty"`
}

func (s *server) listFavorites(w http.ResponseWriter, r *http.Request) {
	movies, err := s.loader.Load(r.Context())
	if err != nil && len(movies) == 0 {
		s.writeError(w, err)
		return
	}
	resp := favoritesResponse{Results: movies}
	if resp.Results == nil {
		resp.Results = []catalog.Movie{}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) addFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.favorites.Add(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.favorites.Remove(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps catalog failures onto gateway status codes.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrRateLimited), catalog.ClassOf(err) == catalog.ErrorClassRateLimit:
		status = http.StatusTooManyRequests
	case errors.Is(err, catalog.ErrCircuitOpen):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case catalog.ClassOf(err) == "":
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "page must be a positive integer"})
		return 0, false
	}
	return page, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := parseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
