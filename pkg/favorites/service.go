package favorites

import (
	"context"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/notify"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	changesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "favorites_changes_total",
		Help: "Favorite set changes by action (add, remove)",
	}, []string{"action"})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "favorites_store_errors_total",
		Help: "Favorite store errors by operation",
	}, []string{"operation"})
)

// Change describes one mutation of the favorite set.
type Change struct {
	ID    int
	Added bool
}

// Service owns a Store and notifies subscribers after every change.
type Service struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger

	changes notify.Publisher[Change]
}

// NewService creates a Service over store.
func NewService(store Store) *Service {
	return &Service{
		store:  store,
		now:    time.Now,
		logger: log.With().Str("component", "favorites").Logger(),
	}
}

// Subscription receives changes. Mutations made through a Subscription
// are not delivered back to it.
type Subscription struct {
	svc    *Service
	id     uint64
	cancel func()
}

// Subscribe registers fn. fn runs on the goroutine that made the change.
func (s *Service) Subscribe(fn func(Change)) *Subscription {
	id, cancel := s.changes.Subscribe(fn)
	return &Subscription{svc: s, id: id, cancel: cancel}
}

// Cancel stops delivery. It is safe to call more than once.
func (sub *Subscription) Cancel() {
	sub.cancel()
}

// Add adds id without notifying this subscription.
func (sub *Subscription) Add(ctx context.Context, id int) error {
	return sub.svc.add(ctx, id, sub.id)
}

// Remove removes id without notifying this subscription.
func (sub *Subscription) Remove(ctx context.Context, id int) error {
	return sub.svc.remove(ctx, id, sub.id)
}

// Toggle flips id without notifying this subscription.
func (sub *Subscription) Toggle(ctx context.Context, id int) (bool, error) {
	return sub.svc.toggle(ctx, id, sub.id)
}

// IDs returns the favorite ids, most recently added first.
func (s *Service) IDs(ctx context.Context) ([]int, error) {
	ids, err := s.store.IDs(ctx)
	if err != nil {
		storeErrorsTotal.WithLabelValues("ids").Inc()
		return nil, err
	}
	return ids, nil
}

// IsFavorite reports whether id is a favorite.
func (s *Service) IsFavorite(ctx context.Context, id int) (bool, error) {
	ok, err := s.store.IsFavorite(ctx, id)
	if err != nil {
		storeErrorsTotal.WithLabelValues("is_favorite").Inc()
		return false, err
	}
	return ok, nil
}

// Add adds id. Adding an existing favorite is a no-op.
func (s *Service) Add(ctx context.Context, id int) error {
	return s.add(ctx, id, 0)
}

// Remove removes id. Removing a missing favorite is a no-op.
func (s *Service) Remove(ctx context.Context, id int) error {
	return s.remove(ctx, id, 0)
}

// Toggle flips id and returns whether it is now a favorite.
func (s *Service) Toggle(ctx context.Context, id int) (bool, error) {
	return s.toggle(ctx, id, 0)
}

func (s *Service) add(ctx context.Context, id int, origin uint64) error {
	added, err := s.store.Add(ctx, id, s.now())
	if err != nil {
		storeErrorsTotal.WithLabelValues("add").Inc()
		return err
	}
	if added {
		changesTotal.WithLabelValues("add").Inc()
		s.logger.Debug().Int("movie_id", id).Msg("Favorite added")
		s.publish(Change{ID: id, Added: true}, origin)
	}
	return nil
}

func (s *Service) remove(ctx context.Context, id int, origin uint64) error {
	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		storeErrorsTotal.WithLabelValues("remove").Inc()
		return err
	}
	if removed {
		changesTotal.WithLabelValues("remove").Inc()
		s.logger.Debug().Int("movie_id", id).Msg("Favorite removed")
		s.publish(Change{ID: id, Added: false}, origin)
	}
	return nil
}

func (s *Service) toggle(ctx context.Context, id int, origin uint64) (bool, error) {
	fav, err := s.IsFavorite(ctx, id)
	if err != nil {
		return false, err
	}
	if fav {
		return false, s.remove(ctx, id, origin)
	}
	return true, s.add(ctx, id, origin)
}

func (s *Service) publish(c Change, origin uint64) {
	s.changes.PublishExcept(origin, c)
}
