package favorites

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

var errNoDetails = errors.New("empty details response")

// DetailsFetcher fetches one movie's details.
type DetailsFetcher interface {
	FetchDetails(ctx context.Context, id int) (*catalog.MovieDetails, error)
}

// Loader resolves the favorite ids into movies.
type Loader struct {
	svc         *Service
	details     DetailsFetcher
	concurrency int
	logger      zerolog.Logger
}

// NewLoader creates a Loader fetching at most concurrency details at once.
func NewLoader(svc *Service, details DetailsFetcher, concurrency int) *Loader {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Loader{
		svc:         svc,
		details:     details,
		concurrency: concurrency,
		logger:      log.With().Str("component", "favorites-loader").Logger(),
	}
}

// Load fetches every favorite, drops duplicate ids and sorts by title.
// Movies that loaded are returned together with the first failure in
// favorites order.
func (l *Loader) Load(ctx context.Context) ([]catalog.Movie, error) {
	ids, err := l.svc.IDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	movies := make([]*catalog.Movie, len(ids))
	errs := make([]error, len(ids))

	p := pool.New().WithMaxGoroutines(l.concurrency)
	for i, id := range ids {
		p.Go(func() {
			d, err := l.details.FetchDetails(ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			if d == nil {
				errs[i] = fmt.Errorf("movie %d: %w", id, errNoDetails)
				return
			}
			m := d.Movie()
			movies[i] = &m
		})
	}
	p.Wait()

	var firstErr error
	seen := make(map[int]struct{}, len(ids))
	out := make([]catalog.Movie, 0, len(ids))
	for i := range ids {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		m := movies[i]
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })

	l.logger.Debug().
		Int("favorites", len(ids)).
		Int("loaded", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Favorites loaded")

	return out, firstErr
}
