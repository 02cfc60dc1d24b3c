// Package reporting produces tax-oriented reports from parsed ledgers and
// matched gain events.
package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
)

// Period bounds a report to [StartMs, EndMs] inclusive, in unix ms.
// A zero bound leaves that side open.
type Period struct {
	StartMs int64
	EndMs   int64
}

// Contains reports whether ts falls inside the period.
func (p Period) Contains(ts int64) bool {
	if p.StartMs != 0 && ts < p.StartMs {
		return false
	}
	if p.EndMs != 0 && ts > p.EndMs {
		return false
	}
	return true
}

// ReportRequest identifies one report generation run.
type ReportRequest struct {
	ID          string // uuid
	EntityID    string
	Mode        domain.GainsMode
	Period      Period
	RequestedAt int64 // Unix ms
}

// Report is the full per-entity output: parse health plus realized gains.
type Report struct {
	GeneratedAt time.Time
	Request     ReportRequest

	Wallets []WalletParseSummary
	Gains   GainsSummary
	Events  []*domain.RealizedGainEvent
}

// ParseStats counts transactions by lifecycle outcome.
type ParseStats struct {
	Total   int
	Parsed  int
	Ignored int
	Errored int
}

// ErrorSummary is the per-type error count for a wallet, split by
// resolution state.
type ErrorSummary struct {
	Type       domain.ErrorType
	Resolved   int
	Unresolved int
}

// WalletParseSummary describes parse health for one wallet.
type WalletParseSummary struct {
	WalletID string
	Label    string
	Chain    domain.Chain
	Stats    ParseStats
	Errors   []ErrorSummary
}

// ParseTestResult is the outcome of parsing one transaction, used by the
// parse verification surface.
type ParseTestResult struct {
	WalletID  string
	TxHash    string
	Status    domain.TxStatus
	EntryType domain.EntryType      // set when Status is PARSED
	Splits    []domain.JournalSplit // all splits across the produced entries
	Balanced  bool                  // every produced entry sums to zero USD
	ErrorType domain.ErrorType      // set when Status is ERROR
	Message   string
	Warnings  []string
}

// GainsSummary aggregates an entity's realized gain events.
type GainsSummary struct {
	Mode          domain.GainsMode
	EventCount    int
	ExemptCount   int
	TotalProceeds decimal.Decimal
	TotalCost     decimal.Decimal
	TotalGain     decimal.Decimal
	ScopeFailures []string
}
