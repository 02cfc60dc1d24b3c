package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// RawTransactionStore implements storage.RawTransactionStore using PostgreSQL.
type RawTransactionStore struct {
	pool *Pool
}

// NewRawTransactionStore creates a new RawTransactionStore.
func NewRawTransactionStore(pool *Pool) *RawTransactionStore {
	return &RawTransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawTransactionStore = (*RawTransactionStore)(nil)

const insertRawTxQuery = `
	INSERT INTO raw_transactions (
		id, wallet_id, chain, hash, block_number, timestamp,
		from_addr, to_addr, value, gas_used, decoded, status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// Insert adds a new raw transaction. Returns ErrDuplicateKey if the ID exists.
func (s *RawTransactionStore) Insert(ctx context.Context, tx *domain.RawTransaction) error {
	decoded, err := encodeDecodedCall(tx.Decoded)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, insertRawTxQuery,
		tx.ID, tx.WalletID, string(tx.Chain), tx.Hash, tx.BlockNumber, tx.Timestamp,
		tx.From, tx.To, tx.Value.String(), tx.GasUsed.String(), decoded,
		string(tx.Status), tx.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert raw transaction: %w", err)
	}
	return nil
}

// InsertBulk adds multiple transactions atomically. Fails entire batch on any duplicate.
func (s *RawTransactionStore) InsertBulk(ctx context.Context, txs []*domain.RawTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx)

	for _, tx := range txs {
		decoded, err := encodeDecodedCall(tx.Decoded)
		if err != nil {
			return err
		}
		_, err = dbTx.Exec(ctx, insertRawTxQuery,
			tx.ID, tx.WalletID, string(tx.Chain), tx.Hash, tx.BlockNumber, tx.Timestamp,
			tx.From, tx.To, tx.Value.String(), tx.GasUsed.String(), decoded,
			string(tx.Status), tx.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert raw transaction in bulk: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const selectRawTxColumns = `
	id, wallet_id, chain, hash, block_number, timestamp,
	from_addr, to_addr, value::text, gas_used::text, decoded, status, created_at
`

// GetByID retrieves a transaction by ID. Returns ErrNotFound if not exists.
func (s *RawTransactionStore) GetByID(ctx context.Context, id string) (*domain.RawTransaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectRawTxColumns+` FROM raw_transactions WHERE id = $1`, id)

	tx, err := scanRawTransaction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get raw transaction by id: %w", err)
	}
	return tx, nil
}

// GetByWalletID retrieves all transactions for a wallet, ordered by timestamp ASC, id ASC.
func (s *RawTransactionStore) GetByWalletID(ctx context.Context, walletID string) ([]*domain.RawTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectRawTxColumns+` FROM raw_transactions
		 WHERE wallet_id = $1 ORDER BY timestamp ASC, id ASC`, walletID)
	if err != nil {
		return nil, fmt.Errorf("get raw transactions by wallet id: %w", err)
	}
	defer rows.Close()

	return scanRawTransactions(rows)
}

// GetByStatus retrieves transactions for a wallet in the given status,
// ordered by timestamp ASC, id ASC.
func (s *RawTransactionStore) GetByStatus(ctx context.Context, walletID string, status domain.TxStatus) ([]*domain.RawTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectRawTxColumns+` FROM raw_transactions
		 WHERE wallet_id = $1 AND status = $2 ORDER BY timestamp ASC, id ASC`,
		walletID, string(status))
	if err != nil {
		return nil, fmt.Errorf("get raw transactions by status: %w", err)
	}
	defer rows.Close()

	return scanRawTransactions(rows)
}

// UpdateStatus sets the lifecycle status. Returns ErrNotFound if the ID does not exist.
func (s *RawTransactionStore) UpdateStatus(ctx context.Context, id string, status domain.TxStatus) error {
	if !status.IsValid() {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_transactions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update raw transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func encodeDecodedCall(d *domain.DecodedCall) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode decoded call: %w", err)
	}
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRawTransaction(row rowScanner) (*domain.RawTransaction, error) {
	var (
		tx             domain.RawTransaction
		chain, status  string
		value, gasUsed string
		decoded        []byte
	)
	err := row.Scan(&tx.ID, &tx.WalletID, &chain, &tx.Hash, &tx.BlockNumber, &tx.Timestamp,
		&tx.From, &tx.To, &value, &gasUsed, &decoded, &status, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}

	tx.Chain = domain.Chain(chain)
	tx.Status = domain.TxStatus(status)
	if tx.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	if tx.GasUsed, err = decimal.NewFromString(gasUsed); err != nil {
		return nil, fmt.Errorf("parse gas_used: %w", err)
	}
	if len(decoded) > 0 {
		var d domain.DecodedCall
		if err := json.Unmarshal(decoded, &d); err != nil {
			return nil, fmt.Errorf("decode call payload: %w", err)
		}
		tx.Decoded = &d
	}
	return &tx, nil
}

func scanRawTransactions(rows pgx.Rows) ([]*domain.RawTransaction, error) {
	var out []*domain.RawTransaction
	for rows.Next() {
		tx, err := scanRawTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan raw transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw transactions: %w", err)
	}
	return out, nil
}
