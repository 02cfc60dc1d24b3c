package memory

import (
	"context"
	"sort"
	"sync"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// GainEventStore is an in-memory implementation of storage.GainEventStore.
type GainEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RealizedGainEvent // keyed by ID
}

// NewGainEventStore creates a new in-memory gain event store.
func NewGainEventStore() *GainEventStore {
	return &GainEventStore{
		data: make(map[string]*domain.RealizedGainEvent),
	}
}

// Compile-time interface check.
var _ storage.GainEventStore = (*GainEventStore)(nil)

// InsertBulk adds multiple gain events atomically. Fails entire batch on any duplicate.
func (s *GainEventStore) InsertBulk(_ context.Context, events []*domain.RealizedGainEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.ID == "" || !e.Mode.IsValid() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[e.ID] = struct{}{}
	}

	for _, e := range events {
		cp := *e
		s.data[e.ID] = &cp
	}
	return nil
}

// GetByEntityID retrieves events for an entity and mode, ordered by timestamp ASC, id ASC.
func (s *GainEventStore) GetByEntityID(_ context.Context, entityID string, mode domain.GainsMode) ([]*domain.RealizedGainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RealizedGainEvent
	for _, e := range s.data {
		if e.EntityID == entityID && e.Mode == mode {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteByEntityID removes all events for an entity and mode.
func (s *GainEventStore) DeleteByEntityID(_ context.Context, entityID string, mode domain.GainsMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.data {
		if e.EntityID == entityID && e.Mode == mode {
			delete(s.data, id)
		}
	}
	return nil
}
