package memory

import (
	"context"
	"sort"
	"sync"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// EntityStore is an in-memory implementation of storage.EntityStore.
type EntityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Entity // keyed by ID
}

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{data: make(map[string]*domain.Entity)}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

// Insert adds a new entity. Returns ErrDuplicateKey if the ID exists.
func (s *EntityStore) Insert(_ context.Context, e *domain.Entity) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *e
	s.data[e.ID] = &cp
	return nil
}

// GetByID retrieves an entity by ID. Returns ErrNotFound if not exists.
func (s *EntityStore) GetByID(_ context.Context, id string) (*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// List retrieves all entities ordered by ID.
func (s *EntityStore) List(_ context.Context) ([]*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Entity, 0, len(s.data))
	for _, e := range s.data {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu        sync.RWMutex
	data      map[string]*domain.Wallet // keyed by ID
	byAddress map[string]string         // chain|normalized address -> wallet ID
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		data:      make(map[string]*domain.Wallet),
		byAddress: make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if the ID or the
// (chain, address) pair exists.
func (s *WalletStore) Insert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.ID == "" || w.EntityID == "" || w.Address == "" || !w.Chain.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	addrKey := addressKey(w.Chain, w.Address)
	if _, exists := s.data[w.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byAddress[addrKey]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *w
	s.data[w.ID] = &cp
	s.byAddress[addrKey] = w.ID
	return nil
}

// GetByID retrieves a wallet by ID. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByID(_ context.Context, id string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

// GetByEntityID retrieves all wallets for an entity, ordered by ID.
func (s *WalletStore) GetByEntityID(_ context.Context, entityID string) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Wallet
	for _, w := range s.data {
		if w.EntityID == entityID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByAddress retrieves the wallet holding an address on a chain.
func (s *WalletStore) GetByAddress(_ context.Context, chain domain.Chain, address string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byAddress[addressKey(chain, address)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *s.data[id]
	return &cp, nil
}

func addressKey(chain domain.Chain, address string) string {
	return string(chain) + "|" + domain.NormalizeAddress(chain, address)
}
