package memory

import (
	"context"
	"sort"
	"sync"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// RawTransactionStore is an in-memory implementation of storage.RawTransactionStore.
type RawTransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RawTransaction // keyed by ID
}

// NewRawTransactionStore creates a new in-memory raw transaction store.
func NewRawTransactionStore() *RawTransactionStore {
	return &RawTransactionStore{
		data: make(map[string]*domain.RawTransaction),
	}
}

// Compile-time interface check.
var _ storage.RawTransactionStore = (*RawTransactionStore)(nil)

// Insert adds a new raw transaction. Returns ErrDuplicateKey if the ID exists.
func (s *RawTransactionStore) Insert(_ context.Context, tx *domain.RawTransaction) error {
	if tx == nil || tx.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *tx
	s.data[tx.ID] = &cp
	return nil
}

// InsertBulk adds multiple transactions atomically. Fails entire batch on any duplicate.
func (s *RawTransactionStore) InsertBulk(_ context.Context, txs []*domain.RawTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if tx == nil || tx.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[tx.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[tx.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[tx.ID] = struct{}{}
	}

	for _, tx := range txs {
		cp := *tx
		s.data[tx.ID] = &cp
	}
	return nil
}

// GetByID retrieves a transaction by ID. Returns ErrNotFound if not exists.
func (s *RawTransactionStore) GetByID(_ context.Context, id string) (*domain.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// GetByWalletID retrieves all transactions for a wallet, ordered by timestamp ASC, id ASC.
func (s *RawTransactionStore) GetByWalletID(_ context.Context, walletID string) ([]*domain.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RawTransaction
	for _, tx := range s.data {
		if tx.WalletID == walletID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sortRawTransactions(out)
	return out, nil
}

// GetByStatus retrieves transactions for a wallet in the given status,
// ordered by timestamp ASC, id ASC.
func (s *RawTransactionStore) GetByStatus(_ context.Context, walletID string, status domain.TxStatus) ([]*domain.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RawTransaction
	for _, tx := range s.data {
		if tx.WalletID == walletID && tx.Status == status {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sortRawTransactions(out)
	return out, nil
}

// UpdateStatus sets the lifecycle status. Returns ErrNotFound if the ID does not exist.
func (s *RawTransactionStore) UpdateStatus(_ context.Context, id string, status domain.TxStatus) error {
	if !status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	tx.Status = status
	return nil
}

// sortRawTransactions orders by timestamp ASC with ID as the stable tiebreak.
func sortRawTransactions(txs []*domain.RawTransaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp < txs[j].Timestamp
		}
		return txs[i].ID < txs[j].ID
	})
}
