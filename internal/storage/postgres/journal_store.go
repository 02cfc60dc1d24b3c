package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// JournalStore implements storage.JournalStore using PostgreSQL.
type JournalStore struct {
	pool *Pool
}

// NewJournalStore creates a new JournalStore.
func NewJournalStore(pool *Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.JournalStore = (*JournalStore)(nil)

// InsertEntry adds an entry together with its splits atomically.
func (s *JournalStore) InsertEntry(ctx context.Context, e *domain.JournalEntry) error {
	if len(e.Splits) < 2 {
		return storage.ErrInvalidInput
	}

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx)

	_, err = dbTx.Exec(ctx, `
		INSERT INTO journal_entries (
			id, entity_id, wallet_id, entry_type, timestamp, raw_tx_id, self_transfer, created_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	`, e.ID, e.EntityID, e.WalletID, string(e.Type), e.Timestamp, e.RawTxID, e.SelfTransfer, e.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert journal entry: %w", err)
	}

	for i, sp := range e.Splits {
		_, err = dbTx.Exec(ctx, `
			INSERT INTO journal_splits (
				entry_id, account_id, split_index, symbol, quantity, value_usd, value_vnd
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.ID, sp.AccountID, i, sp.Symbol,
			sp.Quantity.String(), sp.ValueUSD.String(), sp.ValueVND.String())
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert journal split: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const selectEntryColumns = `
	id, entity_id, wallet_id, entry_type, timestamp, COALESCE(raw_tx_id, ''), self_transfer, created_at
`

// GetByID retrieves an entry with splits. Returns ErrNotFound if not exists.
func (s *JournalStore) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectEntryColumns+` FROM journal_entries WHERE id = $1`, id)

	e, err := scanEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get journal entry by id: %w", err)
	}

	if e.Splits, err = s.loadSplits(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByRawTxID retrieves the live entries for a raw transaction, ordered by
// entry type.
func (s *JournalStore) GetByRawTxID(ctx context.Context, rawTxID string) ([]*domain.JournalEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectEntryColumns+` FROM journal_entries
		 WHERE raw_tx_id = $1 ORDER BY entry_type ASC`, rawTxID)
	if err != nil {
		return nil, fmt.Errorf("get journal entries by raw tx id: %w", err)
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, storage.ErrNotFound
	}

	for _, e := range entries {
		if e.Splits, err = s.loadSplits(ctx, e.ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// DeleteByRawTxID removes all entries (and splits, via cascade) for a raw
// transaction. Deleting a missing entry is a no-op.
func (s *JournalStore) DeleteByRawTxID(ctx context.Context, rawTxID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM journal_entries WHERE raw_tx_id = $1`, rawTxID)
	if err != nil {
		return fmt.Errorf("delete journal entry by raw tx id: %w", err)
	}
	return nil
}

// GetByEntityID retrieves all entries for an entity with splits populated,
// ordered by timestamp ASC, id ASC.
func (s *JournalStore) GetByEntityID(ctx context.Context, entityID string) ([]*domain.JournalEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectEntryColumns+` FROM journal_entries
		 WHERE entity_id = $1 ORDER BY timestamp ASC, id ASC`, entityID)
	if err != nil {
		return nil, fmt.Errorf("get journal entries by entity id: %w", err)
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}

	for _, e := range entries {
		if e.Splits, err = s.loadSplits(ctx, e.ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *JournalStore) loadSplits(ctx context.Context, entryID string) ([]domain.JournalSplit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, entry_id, account_id, split_index, symbol,
		       quantity::text, value_usd::text, value_vnd::text
		FROM journal_splits
		WHERE entry_id = $1
		ORDER BY split_index ASC
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("load journal splits: %w", err)
	}
	defer rows.Close()

	var splits []domain.JournalSplit
	for rows.Next() {
		var (
			sp            domain.JournalSplit
			qty, usd, vnd string
		)
		err := rows.Scan(&sp.ID, &sp.EntryID, &sp.AccountID, &sp.Index, &sp.Symbol,
			&qty, &usd, &vnd)
		if err != nil {
			return nil, fmt.Errorf("scan journal split: %w", err)
		}
		if sp.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse split quantity: %w", err)
		}
		if sp.ValueUSD, err = decimal.NewFromString(usd); err != nil {
			return nil, fmt.Errorf("parse split value_usd: %w", err)
		}
		if sp.ValueVND, err = decimal.NewFromString(vnd); err != nil {
			return nil, fmt.Errorf("parse split value_vnd: %w", err)
		}
		splits = append(splits, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal splits: %w", err)
	}
	return splits, nil
}

func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var (
		e         domain.JournalEntry
		entryType string
	)
	err := row.Scan(&e.ID, &e.EntityID, &e.WalletID, &entryType,
		&e.Timestamp, &e.RawTxID, &e.SelfTransfer, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Type = domain.EntryType(entryType)
	return &e, nil
}
