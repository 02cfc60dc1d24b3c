package postgres

import (
	"context"
	"fmt"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// ParseErrorStore implements storage.ParseErrorStore using PostgreSQL.
type ParseErrorStore struct {
	pool *Pool
}

// NewParseErrorStore creates a new ParseErrorStore.
func NewParseErrorStore(pool *Pool) *ParseErrorStore {
	return &ParseErrorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParseErrorStore = (*ParseErrorStore)(nil)

// Insert adds a new parse error record. Returns ErrDuplicateKey if the ID exists.
func (s *ParseErrorStore) Insert(ctx context.Context, rec *domain.ParseErrorRecord) error {
	query := `
		INSERT INTO parse_errors (
			id, raw_tx_id, wallet_id, error_type, message, diagnostic, resolved, created_at
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.RawTxID, rec.WalletID, string(rec.Type),
		rec.Message, rec.Diagnostic, rec.Resolved, rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert parse error: %w", err)
	}
	return nil
}

// GetByWalletID retrieves all records for a wallet, ordered by created_at ASC.
func (s *ParseErrorStore) GetByWalletID(ctx context.Context, walletID string) ([]*domain.ParseErrorRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(raw_tx_id, ''), wallet_id, error_type,
		       message, diagnostic, resolved, created_at
		FROM parse_errors
		WHERE wallet_id = $1
		ORDER BY created_at ASC, id ASC
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("get parse errors by wallet id: %w", err)
	}
	defer rows.Close()

	var out []*domain.ParseErrorRecord
	for rows.Next() {
		var (
			rec     domain.ParseErrorRecord
			errType string
		)
		err := rows.Scan(&rec.ID, &rec.RawTxID, &rec.WalletID, &errType,
			&rec.Message, &rec.Diagnostic, &rec.Resolved, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan parse error: %w", err)
		}
		rec.Type = domain.ErrorType(errType)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parse errors: %w", err)
	}
	return out, nil
}

// CountByType returns record counts grouped by error type, split by resolved flag.
// An empty walletID counts across all wallets.
func (s *ParseErrorStore) CountByType(ctx context.Context, walletID string) (map[domain.ErrorType]storage.ResolvedCounts, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT error_type, resolved, COUNT(*)
		FROM parse_errors
		WHERE ($1 = '' OR wallet_id = $1)
		GROUP BY error_type, resolved
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("count parse errors by type: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ErrorType]storage.ResolvedCounts)
	for rows.Next() {
		var (
			errType  string
			resolved bool
			count    int
		)
		if err := rows.Scan(&errType, &resolved, &count); err != nil {
			return nil, fmt.Errorf("scan parse error count: %w", err)
		}
		c := out[domain.ErrorType(errType)]
		if resolved {
			c.Resolved += count
		} else {
			c.Unresolved += count
		}
		out[domain.ErrorType(errType)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parse error counts: %w", err)
	}
	return out, nil
}

// MarkResolved flips the resolved flag. Returns ErrNotFound if the ID does not exist.
func (s *ParseErrorStore) MarkResolved(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE parse_errors SET resolved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark parse error resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
