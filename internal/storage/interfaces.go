package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
)

// EntityStore provides access to entities storage.
type EntityStore interface {
	// Insert adds a new entity. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, e *domain.Entity) error

	// GetByID retrieves an entity by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Entity, error)

	// List retrieves all entities ordered by ID.
	List(ctx context.Context) ([]*domain.Entity, error)
}

// WalletStore provides access to wallets storage.
type WalletStore interface {
	// Insert adds a new wallet. Returns ErrDuplicateKey if the ID or the
	// (chain, address) pair exists.
	Insert(ctx context.Context, w *domain.Wallet) error

	// GetByID retrieves a wallet by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)

	// GetByEntityID retrieves all wallets for an entity, ordered by ID.
	GetByEntityID(ctx context.Context, entityID string) ([]*domain.Wallet, error)

	// GetByAddress retrieves the wallet holding an address on a chain.
	// Addresses are compared in normalized form. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, chain domain.Chain, address string) (*domain.Wallet, error)
}

// RawTransactionStore provides access to raw_transactions storage.
type RawTransactionStore interface {
	// Insert adds a new raw transaction. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, tx *domain.RawTransaction) error

	// InsertBulk adds multiple transactions atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, txs []*domain.RawTransaction) error

	// GetByID retrieves a transaction by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.RawTransaction, error)

	// GetByWalletID retrieves all transactions for a wallet, ordered by timestamp ASC, id ASC.
	GetByWalletID(ctx context.Context, walletID string) ([]*domain.RawTransaction, error)

	// GetByStatus retrieves transactions for a wallet in the given status,
	// ordered by timestamp ASC, id ASC.
	GetByStatus(ctx context.Context, walletID string, status domain.TxStatus) ([]*domain.RawTransaction, error)

	// UpdateStatus sets the lifecycle status. Returns ErrNotFound if the ID does not exist.
	UpdateStatus(ctx context.Context, id string, status domain.TxStatus) error
}

// AccountStore provides access to accounts storage.
// Accounts are never deleted once referenced.
type AccountStore interface {
	// Insert adds a new account. Returns ErrDuplicateKey if the label exists.
	Insert(ctx context.Context, a *domain.Account) error

	// GetByLabel retrieves an account by its globally unique label.
	// Returns ErrNotFound if not exists.
	GetByLabel(ctx context.Context, label string) (*domain.Account, error)

	// GetByEntityID retrieves all accounts for an entity, ordered by label.
	GetByEntityID(ctx context.Context, entityID string) ([]*domain.Account, error)
}

// JournalStore provides access to journal_entries and journal_splits storage.
type JournalStore interface {
	// InsertEntry adds an entry together with its splits atomically.
	// Returns ErrDuplicateKey if the entry ID exists, ErrInvalidInput if the
	// entry has fewer than two splits.
	InsertEntry(ctx context.Context, e *domain.JournalEntry) error

	// GetByID retrieves an entry with splits. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.JournalEntry, error)

	// GetByRawTxID retrieves the live entries for a raw transaction, ordered
	// by entry type. A transaction yields one main entry plus at most one
	// GAS_FEE companion. Returns ErrNotFound if none exist.
	GetByRawTxID(ctx context.Context, rawTxID string) ([]*domain.JournalEntry, error)

	// DeleteByRawTxID removes all entries (and splits) for a raw transaction.
	// Used to supersede a prior parse. Deleting a missing entry is a no-op.
	DeleteByRawTxID(ctx context.Context, rawTxID string) error

	// GetByEntityID retrieves all entries for an entity with splits populated,
	// ordered by timestamp ASC, id ASC.
	GetByEntityID(ctx context.Context, entityID string) ([]*domain.JournalEntry, error)
}

// ParseErrorStore provides access to parse_errors storage.
type ParseErrorStore interface {
	// Insert adds a new parse error record. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, rec *domain.ParseErrorRecord) error

	// GetByWalletID retrieves all records for a wallet, ordered by created_at ASC.
	GetByWalletID(ctx context.Context, walletID string) ([]*domain.ParseErrorRecord, error)

	// CountByType returns record counts grouped by error type, split by resolved flag.
	CountByType(ctx context.Context, walletID string) (map[domain.ErrorType]ResolvedCounts, error)

	// MarkResolved flips the resolved flag. Returns ErrNotFound if the ID does not exist.
	MarkResolved(ctx context.Context, id string) error
}

// ResolvedCounts splits a per-type error count by resolution state.
type ResolvedCounts struct {
	Resolved   int
	Unresolved int
}

// GainEventStore provides access to gain_events storage.
type GainEventStore interface {
	// InsertBulk adds multiple gain events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.RealizedGainEvent) error

	// GetByEntityID retrieves events for an entity and mode,
	// ordered by timestamp ASC, id ASC.
	GetByEntityID(ctx context.Context, entityID string, mode domain.GainsMode) ([]*domain.RealizedGainEvent, error)

	// DeleteByEntityID removes all events for an entity and mode.
	// Used before a full re-match.
	DeleteByEntityID(ctx context.Context, entityID string, mode domain.GainsMode) error
}

// PricePoint is one hourly price observation.
type PricePoint struct {
	Symbol      string
	TimestampMs int64 // truncated to the hour
	PriceUSD    decimal.Decimal
}

// PriceTimeseriesStore provides access to hourly price storage backing the
// price resolver cache.
type PriceTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, points []*PricePoint) error

	// GetAt retrieves the point for a symbol at an exact hour timestamp.
	// Returns ErrNotFound if not exists.
	GetAt(ctx context.Context, symbol string, timestampMs int64) (*PricePoint, error)

	// GetRange retrieves points for a symbol within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetRange(ctx context.Context, symbol string, start, end int64) ([]*PricePoint, error)
}
