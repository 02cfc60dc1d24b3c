package parse

import (
	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

// LidoParser handles Lido staking: submitting ETH for stETH and claiming
// staking rewards.
type LidoParser struct{}

// NewLidoParser creates a LidoParser.
func NewLidoParser() *LidoParser { return &LidoParser{} }

// Compile-time interface check.
var _ Parser = (*LidoParser)(nil)

// LidoMethods are the staking contract methods the parser handles.
func LidoMethods() []string {
	return []string{"submit", "claimWithdrawal", "claimRewards"}
}

func (p *LidoParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	method := MethodName(tx)
	switch method {
	case "submit":
		// ETH in, stETH out. Treated as a trade so the ETH disposal is
		// visible to gains matching.
		if !tx.Value.IsPositive() {
			return nil, &faults.TxParseError{TxID: tx.ID, Reason: "submit with zero value"}
		}
		ev := tx.Decoded.Event("Transfer")
		if ev == nil {
			return nil, &faults.UnsupportedEventsError{Protocol: domain.ProtocolLido, Events: eventNames(tx)}
		}
		minted, err := eventAmount(tx, *ev)
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntrySwap, Movements: []Movement{
			asset("ETH", tx.Value.Neg()),
			expense("ETH", tx.Value),
			income("stETH", minted.Neg()),
			asset("stETH", minted),
		}}, nil
	case "claimWithdrawal":
		// Finalized withdrawal: stETH position unwinds back to ETH.
		ev := tx.Decoded.Event("WithdrawalClaimed")
		if ev == nil {
			return nil, &faults.UnsupportedEventsError{Protocol: domain.ProtocolLido, Events: eventNames(tx)}
		}
		qty, err := eventAmount(tx, *ev)
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntrySwap, Movements: []Movement{
			asset("stETH", qty.Neg()),
			expense("stETH", qty),
			income("ETH", qty.Neg()),
			asset("ETH", qty),
		}}, nil
	case "claimRewards":
		ev := tx.Decoded.Event("RewardsClaimed")
		if ev == nil {
			return nil, &faults.UnsupportedEventsError{Protocol: domain.ProtocolLido, Events: eventNames(tx)}
		}
		qty, err := eventAmount(tx, *ev)
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryYield, Movements: []Movement{
			income("stETH", qty.Neg()),
			asset("stETH", qty),
		}}, nil
	}
	return nil, &faults.UnhandledFunctionError{Protocol: domain.ProtocolLido, Method: method}
}
