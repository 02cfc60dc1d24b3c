package memory

import (
	"context"
	"sort"
	"sync"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// ParseErrorStore is an in-memory implementation of storage.ParseErrorStore.
type ParseErrorStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ParseErrorRecord // keyed by ID
}

// NewParseErrorStore creates a new in-memory parse error store.
func NewParseErrorStore() *ParseErrorStore {
	return &ParseErrorStore{
		data: make(map[string]*domain.ParseErrorRecord),
	}
}

// Compile-time interface check.
var _ storage.ParseErrorStore = (*ParseErrorStore)(nil)

// Insert adds a new parse error record. Returns ErrDuplicateKey if the ID exists.
func (s *ParseErrorStore) Insert(_ context.Context, rec *domain.ParseErrorRecord) error {
	if rec == nil || rec.ID == "" || !rec.Type.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *rec
	s.data[rec.ID] = &cp
	return nil
}

// GetByWalletID retrieves all records for a wallet, ordered by created_at ASC.
func (s *ParseErrorStore) GetByWalletID(_ context.Context, walletID string) ([]*domain.ParseErrorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ParseErrorRecord
	for _, rec := range s.data {
		if rec.WalletID == walletID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountByType returns record counts grouped by error type, split by resolved flag.
func (s *ParseErrorStore) CountByType(_ context.Context, walletID string) (map[domain.ErrorType]storage.ResolvedCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.ErrorType]storage.ResolvedCounts)
	for _, rec := range s.data {
		if walletID != "" && rec.WalletID != walletID {
			continue
		}
		c := out[rec.Type]
		if rec.Resolved {
			c.Resolved++
		} else {
			c.Unresolved++
		}
		out[rec.Type] = c
	}
	return out, nil
}

// MarkResolved flips the resolved flag. Returns ErrNotFound if the ID does not exist.
func (s *ParseErrorStore) MarkResolved(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	rec.Resolved = true
	return nil
}
