package parse

import (
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

// GenericParser handles plain value movements: native coin transfers,
// standard token Transfer events, and approvals. It is the fallback for
// contracts that resolve to no known protocol but follow a generic shape.
type GenericParser struct{}

// NewGenericParser creates a GenericParser.
func NewGenericParser() *GenericParser { return &GenericParser{} }

// Compile-time interface check.
var _ Parser = (*GenericParser)(nil)

// Parse builds TRANSFER movements for every value flow touching the wallet,
// or an APPROVAL result for allowance calls.
func (p *GenericParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	if MethodName(tx) == "approve" {
		return &Result{Type: domain.EntryApproval}, nil
	}

	res := &Result{Type: domain.EntryTransfer}

	if tx.Value.IsPositive() {
		native := tx.Chain.NativeSymbol()
		if outgoing(tx, w) {
			res.Movements = append(res.Movements,
				asset(native, tx.Value.Neg()), expense(native, tx.Value))
		} else {
			res.Movements = append(res.Movements,
				asset(native, tx.Value), income(native, tx.Value.Neg()))
		}
	}

	for _, ev := range tx.Decoded.EventsNamed("Transfer") {
		qty, err := eventAmount(tx, ev)
		if err != nil {
			return nil, err
		}
		from := ev.Params["from"]
		to := ev.Params["to"]
		switch {
		case EqualAddress(tx.Chain, from, w.Address):
			sym, err := tokenSymbol(tx, ev.Address)
			if err != nil {
				return nil, err
			}
			res.Movements = append(res.Movements, asset(sym, qty.Neg()), expense(sym, qty))
		case EqualAddress(tx.Chain, to, w.Address):
			sym, err := tokenSymbol(tx, ev.Address)
			if err != nil {
				return nil, err
			}
			res.Movements = append(res.Movements, asset(sym, qty), income(sym, qty.Neg()))
		}
	}

	if len(res.Movements) == 0 {
		return nil, &faults.UnknownTransactionInputError{TxID: tx.ID, Selector: selector(tx)}
	}
	return res, nil
}

// tokenSymbol resolves a token contract address to its symbol via the
// decoder-supplied map.
func tokenSymbol(tx *domain.RawTransaction, address string) (string, error) {
	if tx.Decoded != nil {
		if sym, ok := tx.Decoded.TokenSyms[address]; ok && sym != "" {
			return sym, nil
		}
		if sym, ok := tx.Decoded.TokenSyms[domain.NormalizeAddress(tx.Chain, address)]; ok && sym != "" {
			return sym, nil
		}
	}
	return "", &faults.UnknownTokenError{Chain: tx.Chain, Address: address}
}

// eventAmount parses the value parameter of a transfer-shaped event.
func eventAmount(tx *domain.RawTransaction, ev domain.EventLog) (decimal.Decimal, error) {
	raw, ok := ev.Params["value"]
	if !ok {
		raw, ok = ev.Params["amount"]
	}
	if !ok {
		return decimal.Zero, &faults.TxParseError{TxID: tx.ID, Reason: "transfer event has no value parameter"}
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &faults.TxParseError{TxID: tx.ID, Reason: "malformed transfer amount " + raw}
	}
	return qty, nil
}

func selector(tx *domain.RawTransaction) string {
	if tx.Decoded == nil {
		return ""
	}
	return tx.Decoded.Selector
}
