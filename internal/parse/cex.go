package parse

import (
	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

// CEXParser handles normalized centralized-exchange export rows. The loader
// presents each row as a raw transaction with a synthetic decoded call.
type CEXParser struct{}

// NewCEXParser creates a CEXParser.
func NewCEXParser() *CEXParser { return &CEXParser{} }

// Compile-time interface check.
var _ Parser = (*CEXParser)(nil)

// CEXMethods are the synthetic methods exchange loaders emit.
func CEXMethods() []string {
	return []string{"trade", "deposit", "withdrawal"}
}

func (p *CEXParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	method := MethodName(tx)
	switch method {
	case "trade":
		base := tx.Decoded.Args["base"]
		quote := tx.Decoded.Args["quote"]
		if base == "" || quote == "" {
			return nil, &faults.TxParseError{TxID: tx.ID, Reason: "trade row missing base or quote symbol"}
		}
		amount, err := argAmount(tx, "amount")
		if err != nil {
			return nil, err
		}
		total, err := argAmount(tx, "total")
		if err != nil {
			return nil, err
		}
		side := tx.Decoded.Args["side"]
		switch side {
		case "buy":
			return &Result{Type: domain.EntrySwap, Movements: []Movement{
				asset(quote, total.Neg()),
				expense(quote, total),
				income(base, amount.Neg()),
				asset(base, amount),
			}}, nil
		case "sell":
			return &Result{Type: domain.EntrySwap, Movements: []Movement{
				asset(base, amount.Neg()),
				expense(base, amount),
				income(quote, total.Neg()),
				asset(quote, total),
			}}, nil
		}
		return nil, &faults.TxParseError{TxID: tx.ID, Reason: "trade row has unknown side " + side}
	case "deposit":
		sym := tx.Decoded.Args["symbol"]
		if sym == "" {
			return nil, &faults.TxParseError{TxID: tx.ID, Reason: "deposit row missing symbol"}
		}
		qty, err := argAmount(tx, "amount")
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryDeposit, Movements: []Movement{
			asset(sym, qty),
			income(sym, qty.Neg()),
		}}, nil
	case "withdrawal":
		sym := tx.Decoded.Args["symbol"]
		if sym == "" {
			return nil, &faults.TxParseError{TxID: tx.ID, Reason: "withdrawal row missing symbol"}
		}
		qty, err := argAmount(tx, "amount")
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryWithdrawal, Movements: []Movement{
			asset(sym, qty.Neg()),
			expense(sym, qty),
		}}, nil
	}
	return nil, &faults.UnhandledFunctionError{Protocol: domain.ProtocolCEX, Method: method}
}
