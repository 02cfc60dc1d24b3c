package parse

import (
	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

// BridgeParser handles Wormhole token bridge transfers. Bridged funds move
// into an in-transit position rather than leaving the entity, so bridging is
// not a disposal.
type BridgeParser struct{}

// NewBridgeParser creates a BridgeParser.
func NewBridgeParser() *BridgeParser { return &BridgeParser{} }

// Compile-time interface check.
var _ Parser = (*BridgeParser)(nil)

// BridgeMethods are the token bridge methods the parser handles.
func BridgeMethods() []string {
	return []string{"transferTokens", "wrapAndTransferETH", "completeTransfer", "redeemTokens"}
}

func (p *BridgeParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	method := MethodName(tx)
	switch method {
	case "transferTokens":
		sym, err := argSymbol(tx, "token")
		if err != nil {
			return nil, err
		}
		qty, err := argAmount(tx, "amount")
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryBridge, Movements: []Movement{
			asset(sym, qty.Neg()),
			position(domain.AccountAsset, domain.ProtocolWormhole, domain.BalanceSupply, sym, qty),
		}}, nil
	case "wrapAndTransferETH":
		if !tx.Value.IsPositive() {
			return nil, &faults.TxParseError{TxID: tx.ID, Reason: "bridge call with zero value"}
		}
		native := tx.Chain.NativeSymbol()
		return &Result{Type: domain.EntryBridge, Movements: []Movement{
			asset(native, tx.Value.Neg()),
			position(domain.AccountAsset, domain.ProtocolWormhole, domain.BalanceSupply, native, tx.Value),
		}}, nil
	case "completeTransfer", "redeemTokens":
		ev := tx.Decoded.Event("TransferRedeemed")
		if ev == nil {
			ev = tx.Decoded.Event("Transfer")
		}
		if ev == nil {
			return nil, &faults.UnsupportedEventsError{Protocol: domain.ProtocolWormhole, Events: eventNames(tx)}
		}
		qty, err := eventAmount(tx, *ev)
		if err != nil {
			return nil, err
		}
		sym, err := tokenSymbol(tx, ev.Address)
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryBridge, Movements: []Movement{
			position(domain.AccountAsset, domain.ProtocolWormhole, domain.BalanceSupply, sym, qty.Neg()),
			asset(sym, qty),
		}}, nil
	}
	return nil, &faults.UnhandledFunctionError{Protocol: domain.ProtocolWormhole, Method: method}
}
