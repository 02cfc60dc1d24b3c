package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GainsMode selects the scope of FIFO lot matching.
type GainsMode string

const (
	// GainsGlobalFIFO matches lots across all wallets of an entity.
	GainsGlobalFIFO GainsMode = "GLOBAL_FIFO"
	// GainsPerWallet matches lots separately per wallet.
	GainsPerWallet GainsMode = "PER_WALLET"
)

// String returns the string representation of GainsMode.
func (m GainsMode) String() string {
	return string(m)
}

// IsValid checks if the mode is a valid value.
func (m GainsMode) IsValid() bool {
	return m == GainsGlobalFIFO || m == GainsPerWallet
}

// ParseGainsMode parses a string into a GainsMode.
func ParseGainsMode(s string) (GainsMode, error) {
	switch s {
	case string(GainsGlobalFIFO):
		return GainsGlobalFIFO, nil
	case string(GainsPerWallet):
		return GainsPerWallet, nil
	default:
		return "", fmt.Errorf("unknown gains mode: %q", s)
	}
}

// ExemptionReason suppresses gain recognition for a disposal.
type ExemptionReason string

const (
	ExemptBelowThreshold ExemptionReason = "BELOW_THRESHOLD"
	ExemptSelfTransfer   ExemptionReason = "SELF_TRANSFER"
	ExemptGasFee         ExemptionReason = "GAS_FEE"
)

// String returns the string representation of ExemptionReason.
func (r ExemptionReason) String() string {
	return string(r)
}

// ScopeKey addresses one FIFO lot queue: a symbol within an entity or,
// in PER_WALLET mode, within a single wallet.
type ScopeKey struct {
	EntityID string
	WalletID string // empty in GLOBAL_FIFO mode
	Symbol   string
}

// String returns a stable string form of the scope key.
func (k ScopeKey) String() string {
	if k.WalletID == "" {
		return fmt.Sprintf("%s|%s", k.EntityID, k.Symbol)
	}
	return fmt.Sprintf("%s|%s|%s", k.EntityID, k.WalletID, k.Symbol)
}

// Lot is an open acquisition tracked by the gains engine.
type Lot struct {
	EntryID   string          // acquiring journal entry
	Symbol    string          // asset symbol
	Timestamp int64           // acquisition time (ms)
	Quantity  decimal.Decimal // original acquired quantity
	Remaining decimal.Decimal // unconsumed quantity
	CostUSD   decimal.Decimal // total cost basis of the original quantity
}

// RemainingCost returns the cost basis attributable to the unconsumed quantity.
func (l Lot) RemainingCost() decimal.Decimal {
	if l.Quantity.IsZero() {
		return decimal.Zero
	}
	return l.CostUSD.Mul(l.Remaining).Div(l.Quantity)
}

// RealizedGainEvent is the output of matching one disposal fragment against
// one lot. Corresponds to gain_events table in PostgreSQL.
type RealizedGainEvent struct {
	ID              string          // PRIMARY KEY, deterministic hash
	EntityID        string          // FK to entities
	WalletID        string          // disposing wallet, empty in GLOBAL_FIFO scope output
	Symbol          string          // asset symbol
	Timestamp       int64           // disposal time (ms)
	DisposalEntryID string          // disposing journal entry
	LotEntryID      string          // consumed lot's acquiring entry
	Quantity        decimal.Decimal // quantity disposed from this lot
	ProceedsUSD     decimal.Decimal // pro-rated proceeds
	CostBasisUSD    decimal.Decimal // pro-rated cost basis
	GainUSD         decimal.Decimal // proceeds - cost basis
	Exemption       ExemptionReason // empty when the gain is taxable
	Mode            GainsMode       // matching mode used
	CreatedAt       int64           // record creation timestamp (ms)
}
