// Package favorites keeps the set of favorite movie ids and notifies
// subscribers when it changes.
package favorites

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists favorite movie ids.
type Store interface {
	// IDs returns the favorite ids, most recently added first.
	IDs(ctx context.Context) ([]int, error)
	IsFavorite(ctx context.Context, id int) (bool, error)
	// Add stores id with its added time. It reports false when id was
	// already a favorite.
	Add(ctx context.Context, id int, at time.Time) (bool, error)
	// Remove deletes id. It reports false when id was not a favorite.
	Remove(ctx context.Context, id int) (bool, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	added map[int]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{added: make(map[int]time.Time)}
}

// IDs implements Store.
func (s *MemoryStore) IDs(_ context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.added))
	for id := range s.added {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := s.added[ids[i]], s.added[ids[j]]
		if ti.Equal(tj) {
			return ids[i] > ids[j]
		}
		return ti.After(tj)
	})
	return ids, nil
}

// IsFavorite implements Store.
func (s *MemoryStore) IsFavorite(_ context.Context, id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.added[id]
	return ok, nil
}

// Add implements Store.
func (s *MemoryStore) Add(_ context.Context, id int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.added[id]; ok {
		return false, nil
	}
	s.added[id] = at
	return true, nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.added[id]; !ok {
		return false, nil
	}
	delete(s.added, id)
	return true, nil
}
