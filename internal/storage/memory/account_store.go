package memory

import (
	"context"
	"sort"
	"sync"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Account // keyed by label
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[string]*domain.Account),
	}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Insert adds a new account. Returns ErrDuplicateKey if the label exists.
func (s *AccountStore) Insert(_ context.Context, a *domain.Account) error {
	if a == nil || a.ID == "" || a.Label == "" || !a.Type.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.Label]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *a
	s.data[a.Label] = &cp
	return nil
}

// GetByLabel retrieves an account by its globally unique label.
// Returns ErrNotFound if not exists.
func (s *AccountStore) GetByLabel(_ context.Context, label string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[label]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetByEntityID retrieves all accounts for an entity, ordered by label.
func (s *AccountStore) GetByEntityID(_ context.Context, entityID string) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Account
	for _, a := range s.data {
		if a.EntityID == entityID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}
