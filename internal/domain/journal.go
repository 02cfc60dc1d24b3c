package domain

import "github.com/shopspring/decimal"

// EntryType classifies the economic event behind a journal entry.
type EntryType string

const (
	EntrySwap        EntryType = "SWAP"
	EntryTransfer    EntryType = "TRANSFER"
	EntryDeposit     EntryType = "DEPOSIT"
	EntryWithdrawal  EntryType = "WITHDRAWAL"
	EntryBorrow      EntryType = "BORROW"
	EntryRepay       EntryType = "REPAY"
	EntryLiquidation EntryType = "LIQUIDATION"
	EntryYield       EntryType = "YIELD"
	EntryGasFee      EntryType = "GAS_FEE"
	EntryMint        EntryType = "MINT"
	EntryBurn        EntryType = "BURN"
	EntryBridge      EntryType = "BRIDGE"
	EntryApproval    EntryType = "APPROVAL"
	EntryUnknown     EntryType = "UNKNOWN"
)

// String returns the string representation of EntryType.
func (t EntryType) String() string {
	return string(t)
}

// IsValid checks if the entry type is a valid value.
func (t EntryType) IsValid() bool {
	switch t {
	case EntrySwap, EntryTransfer, EntryDeposit, EntryWithdrawal,
		EntryBorrow, EntryRepay, EntryLiquidation, EntryYield,
		EntryGasFee, EntryMint, EntryBurn, EntryBridge,
		EntryApproval, EntryUnknown:
		return true
	}
	return false
}

// JournalEntry is one economically atomic, balanced accounting event.
// Immutable after creation; re-parsing replaces rather than edits.
// Corresponds to journal_entries table in PostgreSQL.
type JournalEntry struct {
	ID        string    // PRIMARY KEY, deterministic hash of the source transaction
	EntityID  string    // FK to entities
	WalletID  string    // wallet the source transaction belongs to
	Type      EntryType // one of the 14 entry types
	Timestamp int64     // Unix timestamp in milliseconds
	RawTxID   string    // source raw transaction, empty for manual entries
	// SelfTransfer marks a TRANSFER whose counterparty is another wallet of
	// the same entity. Such entries are exempt from gains recognition.
	SelfTransfer bool
	Splits       []JournalSplit
	CreatedAt    int64 // record creation timestamp (ms)
}

// JournalSplit is one signed movement against one account within an entry.
// Corresponds to journal_splits table in PostgreSQL.
type JournalSplit struct {
	ID        int64           // BIGSERIAL primary key
	EntryID   string          // FK to journal_entries
	AccountID string          // FK to accounts
	Index     int             // position within the entry, stable ordering key
	Symbol    string          // asset symbol, empty for value-only splits
	Quantity  decimal.Decimal // signed quantity in asset-native units
	ValueUSD  decimal.Decimal // signed USD value at entry timestamp
	ValueVND  decimal.Decimal // signed VND value at entry timestamp
}

// ValueTolerance is the rounding tolerance for zero-sum checks over USD values.
var ValueTolerance = decimal.New(1, -8) // 1e-8
