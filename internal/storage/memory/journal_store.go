package memory

import (
	"context"
	"sort"
	"sync"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// JournalStore is an in-memory implementation of storage.JournalStore.
type JournalStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.JournalEntry // keyed by entry ID
	byRawTx map[string][]string             // raw tx ID -> entry IDs
	splitID int64
}

// NewJournalStore creates a new in-memory journal store.
func NewJournalStore() *JournalStore {
	return &JournalStore{
		data:    make(map[string]*domain.JournalEntry),
		byRawTx: make(map[string][]string),
	}
}

// Compile-time interface check.
var _ storage.JournalStore = (*JournalStore)(nil)

// InsertEntry adds an entry together with its splits atomically.
func (s *JournalStore) InsertEntry(_ context.Context, e *domain.JournalEntry) error {
	if e == nil || e.ID == "" || !e.Type.IsValid() {
		return storage.ErrInvalidInput
	}
	// A journal entry with a single split can never balance.
	if len(e.Splits) < 2 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if e.RawTxID != "" {
		for _, id := range s.byRawTx[e.RawTxID] {
			if s.data[id].Type == e.Type {
				return storage.ErrDuplicateKey
			}
		}
	}

	cp := *e
	cp.Splits = make([]domain.JournalSplit, len(e.Splits))
	for i, sp := range e.Splits {
		s.splitID++
		sp.ID = s.splitID
		sp.EntryID = e.ID
		sp.Index = i
		cp.Splits[i] = sp
	}

	s.data[e.ID] = &cp
	if e.RawTxID != "" {
		s.byRawTx[e.RawTxID] = append(s.byRawTx[e.RawTxID], e.ID)
	}
	return nil
}

// GetByID retrieves an entry with splits. Returns ErrNotFound if not exists.
func (s *JournalStore) GetByID(_ context.Context, id string) (*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyEntry(e), nil
}

// GetByRawTxID retrieves the live entries for a raw transaction, ordered by
// entry type.
func (s *JournalStore) GetByRawTxID(_ context.Context, rawTxID string) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, exists := s.byRawTx[rawTxID]
	if !exists || len(ids) == 0 {
		return nil, storage.ErrNotFound
	}
	out := make([]*domain.JournalEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyEntry(s.data[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// DeleteByRawTxID removes all entries (and splits) for a raw transaction.
// Deleting a missing entry is a no-op.
func (s *JournalStore) DeleteByRawTxID(_ context.Context, rawTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byRawTx[rawTxID] {
		delete(s.data, id)
	}
	delete(s.byRawTx, rawTxID)
	return nil
}

// GetByEntityID retrieves all entries for an entity with splits populated,
// ordered by timestamp ASC, id ASC.
func (s *JournalStore) GetByEntityID(_ context.Context, entityID string) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.JournalEntry
	for _, e := range s.data {
		if e.EntityID == entityID {
			out = append(out, copyEntry(e))
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

func copyEntry(e *domain.JournalEntry) *domain.JournalEntry {
	cp := *e
	cp.Splits = make([]domain.JournalSplit, len(e.Splits))
	copy(cp.Splits, e.Splits)
	return &cp
}
