package reporting

import (
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/lifecycle"
)

// NewParseTestResult flattens one lifecycle outcome into the parse
// verification row for its transaction.
func NewParseTestResult(tx *domain.RawTransaction, out *lifecycle.Outcome) ParseTestResult {
	r := ParseTestResult{
		WalletID: tx.WalletID,
		TxHash:   tx.Hash,
		Status:   out.Status,
		Warnings: out.Warnings,
	}
	for _, e := range out.Entries {
		if r.EntryType == "" {
			r.EntryType = e.Type
		}
		r.Splits = append(r.Splits, e.Splits...)
	}
	r.Balanced = entriesBalanced(out.Entries)
	if out.Record != nil {
		r.ErrorType = out.Record.Type
		r.Message = out.Record.Message
	}
	return r
}

// entriesBalanced reports whether every entry's splits sum to zero USD
// within the domain tolerance. False when no entries were produced.
func entriesBalanced(entries []*domain.JournalEntry) bool {
	if len(entries) == 0 {
		return false
	}
	for _, e := range entries {
		sum := decimal.Zero
		for _, s := range e.Splits {
			sum = sum.Add(s.ValueUSD)
		}
		if sum.Abs().GreaterThan(domain.ValueTolerance) {
			return false
		}
	}
	return true
}
