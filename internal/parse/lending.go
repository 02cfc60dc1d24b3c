package parse

import (
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

// AaveParser handles Aave v2 lending pool calls.
type AaveParser struct{}

// NewAaveParser creates an AaveParser.
func NewAaveParser() *AaveParser { return &AaveParser{} }

// Compile-time interface check.
var _ Parser = (*AaveParser)(nil)

// AaveMethods are the lending pool methods the parser handles.
func AaveMethods() []string {
	return []string{"deposit", "withdraw", "borrow", "repay", "liquidationCall"}
}

func (p *AaveParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	method := MethodName(tx)
	if method == "liquidationCall" {
		return p.parseLiquidation(tx)
	}

	sym, err := argSymbol(tx, "asset", "reserve")
	if err != nil {
		return nil, err
	}
	qty, err := argAmount(tx, "amount")
	if err != nil {
		return nil, err
	}

	switch method {
	case "deposit":
		return &Result{Type: domain.EntryDeposit, Movements: []Movement{
			asset(sym, qty.Neg()),
			position(domain.AccountAsset, domain.ProtocolAaveV2, domain.BalanceSupply, sym, qty),
		}}, nil
	case "withdraw":
		return &Result{Type: domain.EntryWithdrawal, Movements: []Movement{
			position(domain.AccountAsset, domain.ProtocolAaveV2, domain.BalanceSupply, sym, qty.Neg()),
			asset(sym, qty),
		}}, nil
	case "borrow":
		return &Result{Type: domain.EntryBorrow, Movements: []Movement{
			asset(sym, qty),
			position(domain.AccountLiability, domain.ProtocolAaveV2, domain.BalanceBorrow, sym, qty.Neg()),
		}}, nil
	case "repay":
		return &Result{Type: domain.EntryRepay, Movements: []Movement{
			position(domain.AccountLiability, domain.ProtocolAaveV2, domain.BalanceBorrow, sym, qty),
			asset(sym, qty.Neg()),
		}}, nil
	}
	return nil, &faults.UnhandledFunctionError{Protocol: domain.ProtocolAaveV2, Method: method}
}

// parseLiquidation books the borrower side of a liquidation: collateral is
// seized from the supply position, debt is written down against the borrow
// position.
func (p *AaveParser) parseLiquidation(tx *domain.RawTransaction) (*Result, error) {
	colSym, err := argSymbol(tx, "collateralAsset")
	if err != nil {
		return nil, err
	}
	debtSym, err := argSymbol(tx, "debtAsset")
	if err != nil {
		return nil, err
	}
	colQty, err := argAmount(tx, "liquidatedCollateralAmount")
	if err != nil {
		return nil, err
	}
	debtQty, err := argAmount(tx, "debtToCover")
	if err != nil {
		return nil, err
	}
	return &Result{Type: domain.EntryLiquidation, Movements: []Movement{
		position(domain.AccountAsset, domain.ProtocolAaveV2, domain.BalanceSupply, colSym, colQty.Neg()),
		expense(colSym, colQty),
		position(domain.AccountLiability, domain.ProtocolAaveV2, domain.BalanceBorrow, debtSym, debtQty),
		income(debtSym, debtQty.Neg()),
	}}, nil
}

// CompoundParser handles Compound cToken market calls. The decoder maps each
// cToken address to its underlying symbol.
type CompoundParser struct{}

// NewCompoundParser creates a CompoundParser.
func NewCompoundParser() *CompoundParser { return &CompoundParser{} }

// Compile-time interface check.
var _ Parser = (*CompoundParser)(nil)

// CompoundMethods are the cToken methods the parser handles.
func CompoundMethods() []string {
	return []string{"mint", "redeem", "redeemUnderlying", "borrow", "repayBorrow"}
}

func (p *CompoundParser) Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error) {
	sym, err := tokenSymbol(tx, tx.To)
	if err != nil {
		return nil, err
	}

	method := MethodName(tx)
	switch method {
	case "mint":
		qty, err := argAmount(tx, "mintAmount")
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryDeposit, Movements: []Movement{
			asset(sym, qty.Neg()),
			position(domain.AccountAsset, domain.ProtocolCompound, domain.BalanceSupply, sym, qty),
		}}, nil
	case "redeem", "redeemUnderlying":
		qty, err := argAmount(tx, "redeemAmount", "redeemTokens")
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryWithdrawal, Movements: []Movement{
			position(domain.AccountAsset, domain.ProtocolCompound, domain.BalanceSupply, sym, qty.Neg()),
			asset(sym, qty),
		}}, nil
	case "borrow":
		qty, err := argAmount(tx, "borrowAmount")
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryBorrow, Movements: []Movement{
			asset(sym, qty),
			position(domain.AccountLiability, domain.ProtocolCompound, domain.BalanceBorrow, sym, qty.Neg()),
		}}, nil
	case "repayBorrow":
		qty, err := argAmount(tx, "repayAmount")
		if err != nil {
			return nil, err
		}
		return &Result{Type: domain.EntryRepay, Movements: []Movement{
			position(domain.AccountLiability, domain.ProtocolCompound, domain.BalanceBorrow, sym, qty),
			asset(sym, qty.Neg()),
		}}, nil
	}
	return nil, &faults.UnhandledFunctionError{Protocol: domain.ProtocolCompound, Method: method}
}

// argSymbol resolves the first present address argument to a token symbol.
func argSymbol(tx *domain.RawTransaction, names ...string) (string, error) {
	for _, name := range names {
		if addr, ok := tx.Decoded.Args[name]; ok && addr != "" {
			return tokenSymbol(tx, addr)
		}
	}
	return "", &faults.TxParseError{TxID: tx.ID, Reason: "no asset argument in decoded call"}
}

// argAmount parses the first present numeric argument.
func argAmount(tx *domain.RawTransaction, names ...string) (decimal.Decimal, error) {
	for _, name := range names {
		raw, ok := tx.Decoded.Args[name]
		if !ok || raw == "" {
			continue
		}
		qty, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, &faults.TxParseError{TxID: tx.ID, Reason: "malformed amount argument " + raw}
		}
		if !qty.IsPositive() {
			return decimal.Zero, &faults.TxParseError{TxID: tx.ID, Reason: "non-positive amount argument " + raw}
		}
		return qty, nil
	}
	return decimal.Zero, &faults.TxParseError{TxID: tx.ID, Reason: "no amount argument in decoded call"}
}
