package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// EntityStore implements storage.EntityStore using PostgreSQL.
type EntityStore struct {
	pool *Pool
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(pool *Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

// Insert adds a new entity. Returns ErrDuplicateKey if the ID exists.
func (s *EntityStore) Insert(ctx context.Context, e *domain.Entity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO entities (id, name, created_at) VALUES ($1, $2, $3)`,
		e.ID, e.Name, e.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

// GetByID retrieves an entity by ID. Returns ErrNotFound if not exists.
func (s *EntityStore) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	var e domain.Entity
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM entities WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity by id: %w", err)
	}
	return &e, nil
}

// List retrieves all entities ordered by ID.
func (s *EntityStore) List(ctx context.Context) ([]*domain.Entity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM entities ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []*domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

// WalletStore implements storage.WalletStore using PostgreSQL. Addresses are
// stored in normalized form.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if the ID or the
// (chain, address) pair exists.
func (s *WalletStore) Insert(ctx context.Context, w *domain.Wallet) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallets (id, entity_id, chain, address, label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.EntityID, string(w.Chain),
		domain.NormalizeAddress(w.Chain, w.Address), w.Label, w.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

const selectWalletColumns = `
	id, entity_id, chain, address, label, created_at
`

// GetByID retrieves a wallet by ID. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectWalletColumns+` FROM wallets WHERE id = $1`, id)

	w, err := scanWallet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByEntityID retrieves all wallets for an entity, ordered by ID.
func (s *WalletStore) GetByEntityID(ctx context.Context, entityID string) ([]*domain.Wallet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectWalletColumns+` FROM wallets
		 WHERE entity_id = $1 ORDER BY id ASC`, entityID)
	if err != nil {
		return nil, fmt.Errorf("get wallets by entity id: %w", err)
	}
	defer rows.Close()

	var out []*domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return out, nil
}

// GetByAddress retrieves the wallet holding an address on a chain.
func (s *WalletStore) GetByAddress(ctx context.Context, chain domain.Chain, address string) (*domain.Wallet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectWalletColumns+` FROM wallets WHERE chain = $1 AND address = $2`,
		string(chain), domain.NormalizeAddress(chain, address))

	w, err := scanWallet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by address: %w", err)
	}
	return w, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w     domain.Wallet
		chain string
	)
	err := row.Scan(&w.ID, &w.EntityID, &chain, &w.Address, &w.Label, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.Chain = domain.Chain(chain)
	return &w, nil
}
