package parse

import (
	"chainledger/internal/domain"
	"chainledger/internal/faults"
	"chainledger/internal/protocol"
)

// SPLParser handles Solana token program transfers.
type SPLParser struct{}

// NewSPLParser creates an SPLParser.
func NewSPLParser() *SPLParser { return &SPLParser{} }

// Compile-time interface check.
var _ Parser = (*SPLParser)(nil)

// SPLMethods are the token program instructions the parser handles.
func SPLMethods() []string {
	return []string{"transfer", "transferChecked"}
}

func (p *SPLParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	mint, ok := tx.Decoded.Args["mint"]
	if !ok || mint == "" {
		return nil, &faults.TxParseError{TxID: tx.ID, Reason: "token instruction has no mint"}
	}
	sym, err := tokenSymbol(tx, mint)
	if err != nil {
		return nil, err
	}
	qty, err := argAmount(tx, "amount")
	if err != nil {
		return nil, err
	}

	res := &Result{Type: domain.EntryTransfer}
	authority := tx.Decoded.Args["authority"]
	if EqualAddress(tx.Chain, authority, w.Address) {
		res.Movements = append(res.Movements, asset(sym, qty.Neg()), expense(sym, qty))
		if dest := tx.Decoded.Args["destinationOwner"]; dest != "" && !protocol.OnCurve(dest) {
			res.Warnings = append(res.Warnings, "destination "+dest+" is a program-derived address")
		}
	} else {
		res.Movements = append(res.Movements, asset(sym, qty), income(sym, qty.Neg()))
	}
	return res, nil
}
