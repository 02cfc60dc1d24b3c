// Package gains matches disposals against acquisition lots first-in-first-out
// and emits realized gain events per matched fragment.
package gains

import (
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
)

// SplitEvent is one wallet-holding movement prepared for lot matching:
// a journal split on a plain asset account joined with its entry context.
type SplitEvent struct {
	EntryID      string
	EntryType    domain.EntryType
	WalletID     string
	SelfTransfer bool
	Timestamp    int64
	Symbol       string
	Quantity     decimal.Decimal // signed
	ValueUSD     decimal.Decimal // signed
	Seq          int             // position in entity-wide chronological order
}

// BuildEvents projects journal entries onto the split events the matcher
// consumes. Only splits against plain asset accounts participate: protocol
// positions track deposits and bridge transits without disturbing lot
// history, and income/expense counterparts carry no holdings. Entries must
// arrive ordered by timestamp then ID.
func BuildEvents(entries []*domain.JournalEntry, accounts map[string]*domain.Account) []SplitEvent {
	var out []SplitEvent
	for _, e := range entries {
		switch e.Type {
		case domain.EntryGasFee, domain.EntryApproval, domain.EntryUnknown:
			continue
		}
		for _, sp := range e.Splits {
			acct, ok := accounts[sp.AccountID]
			if !ok || acct.Type != domain.AccountAsset {
				continue
			}
			if acct.Protocol != "" || acct.BalanceType != "" {
				continue
			}
			if sp.Quantity.IsZero() {
				continue
			}
			out = append(out, SplitEvent{
				EntryID:      e.ID,
				EntryType:    e.Type,
				WalletID:     e.WalletID,
				SelfTransfer: e.SelfTransfer,
				Timestamp:    e.Timestamp,
				Symbol:       sp.Symbol,
				Quantity:     sp.Quantity,
				ValueUSD:     sp.ValueUSD,
				Seq:          len(out),
			})
		}
	}
	return out
}

// acquisition reports whether the event opens a lot under the given mode.
func acquisition(ev SplitEvent, mode domain.GainsMode) bool {
	if !ev.Quantity.IsPositive() {
		return false
	}
	switch ev.EntryType {
	case domain.EntryDeposit, domain.EntryMint, domain.EntryYield, domain.EntrySwap:
		return true
	case domain.EntryTransfer:
		// The receiving half of a transfer between own wallets re-opens the
		// holding in the destination wallet's queue, costed at the transfer
		// value rather than the original acquisition. The outbound half
		// disposes silently, so no gain is realized on the hop itself; the
		// original basis stays with the source wallet's scope. In global
		// mode the lots never left the pool.
		return ev.SelfTransfer && mode == domain.GainsPerWallet
	}
	return false
}

// disposal reports whether the event consumes lots under the given mode.
func disposal(ev SplitEvent, mode domain.GainsMode) bool {
	if !ev.Quantity.IsNegative() {
		return false
	}
	switch ev.EntryType {
	case domain.EntryWithdrawal, domain.EntryBurn, domain.EntrySwap:
		return true
	case domain.EntryTransfer:
		if ev.SelfTransfer {
			return mode == domain.GainsPerWallet
		}
		return true
	}
	return false
}

// scopeFor derives the lot queue key for an event.
func scopeFor(entityID string, ev SplitEvent, mode domain.GainsMode) domain.ScopeKey {
	key := domain.ScopeKey{EntityID: entityID, Symbol: ev.Symbol}
	if mode == domain.GainsPerWallet {
		key.WalletID = ev.WalletID
	}
	return key
}
