package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mkarlsen/sunwatch/internal/sunwatch/store"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// Store is an in-memory EventStore keyed by calendar date.  It is intended
// for tests and dev environments.
type Store struct {
	mu     sync.RWMutex
	events map[string]types.SunEvent
}

func New() *Store {
	return &Store{
		events: make(map[string]types.SunEvent),
	}
}

func (s *Store) GetByDate(_ context.Context, date time.Time) (types.SunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[store.DateKey(date)]
	if !ok {
		return types.SunEvent{}, store.ErrNotFound
	}
	return ev, nil
}

// Put stores or replaces the record for its date.
func (s *Store) Put(ev types.SunEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[store.DateKey(ev.Date)] = ev
}
