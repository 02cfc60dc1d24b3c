package parse

import (
	"sort"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

// SwapParser handles AMM trades for Uniswap v2/v3 and Curve. The router
// implementations differ but the accounting shape is the same: net token
// flows in and out of the wallet within one transaction.
type SwapParser struct {
	protocol domain.Protocol
}

// NewSwapParser creates a SwapParser bound to one AMM protocol.
func NewSwapParser(protocol domain.Protocol) *SwapParser {
	return &SwapParser{protocol: protocol}
}

// Compile-time interface check.
var _ Parser = (*SwapParser)(nil)

// Parse nets the wallet's token flows and emits a SWAP with the sold side
// against a trade expense and the bought side against a trade income.
func (p *SwapParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	flows, err := netFlows(tx, w)
	if err != nil {
		return nil, err
	}

	var sold, bought []tokenFlow
	for _, f := range flows {
		switch {
		case f.qty.IsNegative():
			sold = append(sold, f)
		case f.qty.IsPositive():
			bought = append(bought, f)
		}
	}
	if len(sold) == 0 || len(bought) == 0 {
		return nil, &faults.UnsupportedEventsError{
			Protocol: p.protocol,
			Events:   eventNames(tx),
		}
	}

	res := &Result{Type: domain.EntrySwap}
	for _, f := range sold {
		res.Movements = append(res.Movements,
			asset(f.symbol, f.qty), expense(f.symbol, f.qty.Neg()))
	}
	for _, f := range bought {
		res.Movements = append(res.Movements,
			income(f.symbol, f.qty.Neg()), asset(f.symbol, f.qty))
	}
	return res, nil
}

// tokenFlow is the wallet's net quantity change for one symbol.
type tokenFlow struct {
	symbol string
	qty    decimal.Decimal
}

// netFlows sums the wallet's per-symbol flows across native value and all
// Transfer events, dropping symbols that net to zero.
func netFlows(tx *domain.RawTransaction, w *domain.Wallet) ([]tokenFlow, error) {
	sums := make(map[string]decimal.Decimal)

	if tx.Value.IsPositive() {
		native := tx.Chain.NativeSymbol()
		if outgoing(tx, w) {
			sums[native] = sums[native].Sub(tx.Value)
		} else {
			sums[native] = sums[native].Add(tx.Value)
		}
	}

	for _, ev := range tx.Decoded.EventsNamed("Transfer") {
		from := ev.Params["from"]
		to := ev.Params["to"]
		fromWallet := EqualAddress(tx.Chain, from, w.Address)
		toWallet := EqualAddress(tx.Chain, to, w.Address)
		if !fromWallet && !toWallet {
			continue
		}
		qty, err := eventAmount(tx, ev)
		if err != nil {
			return nil, err
		}
		sym, err := tokenSymbol(tx, ev.Address)
		if err != nil {
			return nil, err
		}
		if fromWallet {
			sums[sym] = sums[sym].Sub(qty)
		} else {
			sums[sym] = sums[sym].Add(qty)
		}
	}

	flows := make([]tokenFlow, 0, len(sums))
	for sym, qty := range sums {
		if qty.IsZero() {
			continue
		}
		flows = append(flows, tokenFlow{symbol: sym, qty: qty})
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].symbol < flows[j].symbol })
	return flows, nil
}

func eventNames(tx *domain.RawTransaction) []string {
	if tx.Decoded == nil {
		return nil
	}
	names := make([]string, 0, len(tx.Decoded.Events))
	for _, ev := range tx.Decoded.Events {
		names = append(names, ev.Name)
	}
	return names
}
