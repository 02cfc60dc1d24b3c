package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Insert adds a new account. Returns ErrDuplicateKey if the label exists.
func (s *AccountStore) Insert(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, entity_id, label, account_type, symbol, protocol, balance_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.EntityID, a.Label, string(a.Type), a.Symbol,
		string(a.Protocol), string(a.BalanceType), a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

const selectAccountColumns = `
	id, entity_id, label, account_type, symbol, protocol, balance_type, created_at
`

// GetByLabel retrieves an account by its globally unique label.
// Returns ErrNotFound if not exists.
func (s *AccountStore) GetByLabel(ctx context.Context, label string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectAccountColumns+` FROM accounts WHERE label = $1`, label)

	a, err := scanAccount(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account by label: %w", err)
	}
	return a, nil
}

// GetByEntityID retrieves all accounts for an entity, ordered by label.
func (s *AccountStore) GetByEntityID(ctx context.Context, entityID string) ([]*domain.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectAccountColumns+` FROM accounts
		 WHERE entity_id = $1 ORDER BY label ASC`, entityID)
	if err != nil {
		return nil, fmt.Errorf("get accounts by entity id: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                          domain.Account
		accountType, protocol, bal string
	)
	err := row.Scan(&a.ID, &a.EntityID, &a.Label, &accountType, &a.Symbol,
		&protocol, &bal, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = domain.AccountType(accountType)
	a.Protocol = domain.Protocol(protocol)
	a.BalanceType = domain.BalanceType(bal)
	return &a, nil
}
