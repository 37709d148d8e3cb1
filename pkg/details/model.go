// Package details holds the view model behind a single movie screen.
package details

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/favorites"
	"github.com/Sternrassler/movie-catalog/pkg/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotLoaded is returned by ToggleFavorite before details are fetched.
var ErrNotLoaded = errors.New("details not loaded")

// Fetcher loads one movie's details.
type Fetcher interface {
	FetchDetails(ctx context.Context, id int) (*catalog.MovieDetails, error)
}

// State is what the details screen renders.
type State struct {
	Details    *catalog.MovieDetails
	IsFavorite bool
}

// Update is delivered to subscribers. Alert is set only for alerts.
type Update struct {
	State State
	Alert *notify.Alert
}

// Model fetches details for one movie and keeps its favorite flag in sync
// with changes made elsewhere.
type Model struct {
	id      int
	fetcher Fetcher
	probe   connectivity.Probe
	favs    *favorites.Service
	sub     *favorites.Subscription
	logger  zerolog.Logger
	updates notify.Publisher[Update]

	mu    sync.RWMutex
	state State
}

// NewModel creates a Model for movie id. favs may be nil, in which case
// the favorite flag is never set.
func NewModel(id int, fetcher Fetcher, probe connectivity.Probe, favs *favorites.Service) *Model {
	if probe == nil {
		probe = connectivity.NewStatic(true)
	}
	m := &Model{
		id:      id,
		fetcher: fetcher,
		probe:   probe,
		favs:    favs,
		logger:  log.With().Str("component", "details").Int("movie_id", id).Logger(),
	}
	if favs != nil {
		m.sub = favs.Subscribe(m.favoriteChanged)
	}
	return m
}

// ID returns the movie id.
func (m *Model) ID() int {
	return m.id
}

// State returns the current state.
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn for state changes and alerts.
func (m *Model) Subscribe(fn func(Update)) (cancel func()) {
	_, cancel = m.updates.Subscribe(fn)
	return cancel
}

// Close stops following favorite changes.
func (m *Model) Close() {
	if m.sub != nil {
		m.sub.Cancel()
	}
}

// Fetch loads the details and the favorite flag. Failures are published
// as alerts and returned.
func (m *Model) Fetch(ctx context.Context) error {
	if !m.probe.IsConnected() {
		m.alert(notify.NoInternet())
		return connectivity.ErrOffline
	}

	d, err := m.fetcher.FetchDetails(ctx, m.id)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Fetch details failed")
		m.alert(notify.Error(err.Error()))
		return err
	}

	fav := false
	if m.favs != nil {
		fav, err = m.favs.IsFavorite(ctx, m.id)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Favorite lookup failed")
		}
	}

	m.mu.Lock()
	m.state = State{Details: d, IsFavorite: fav}
	st := m.state
	m.mu.Unlock()

	m.updates.Publish(Update{State: st})
	return nil
}

// ToggleFavorite flips the favorite flag of the loaded movie. It returns
// ErrNotLoaded before a successful Fetch or when the model has no
// favorites service.
func (m *Model) ToggleFavorite(ctx context.Context) (bool, error) {
	m.mu.RLock()
	loaded := m.state.Details != nil
	m.mu.RUnlock()
	if !loaded || m.sub == nil {
		return false, ErrNotLoaded
	}

	fav, err := m.sub.Toggle(ctx, m.id)
	if err != nil {
		m.alert(notify.Error(err.Error()))
		return false, err
	}
	m.setFavorite(fav)
	return fav, nil
}

func (m *Model) favoriteChanged(c favorites.Change) {
	if c.ID != m.id {
		return
	}
	m.setFavorite(c.Added)
}

func (m *Model) setFavorite(fav bool) {
	m.mu.Lock()
	if m.state.IsFavorite == fav {
		m.mu.Unlock()
		return
	}
	m.state.IsFavorite = fav
	st := m.state
	m.mu.Unlock()

	m.updates.Publish(Update{State: st})
}

func (m *Model) alert(a notify.Alert) {
	m.updates.Publish(Update{State: m.State(), Alert: &a})
}
