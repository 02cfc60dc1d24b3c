// Package parse turns raw transactions into proposed accounting movements.
// Parsers are pure functions of (transaction, decoded payload, wallet); they
// never touch persistence.
package parse

import (
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
)

// Movement is one proposed signed movement against an account key.
// Entity context is attached later by the assembler.
type Movement struct {
	AccountType domain.AccountType
	Protocol    domain.Protocol    // protocol holding the position, empty for plain wallets
	BalanceType domain.BalanceType // supply | borrow | reward, empty for plain wallets
	Symbol      string
	Quantity    decimal.Decimal // signed, asset-native units
}

// Result is a parser's proposal: an entry type plus a non-empty,
// quantity-consistent set of movements.
type Result struct {
	Type      domain.EntryType
	Movements []Movement
	Warnings  []string
}

// Parser decodes one protocol's calls and events into proposed movements.
type Parser interface {
	Parse(tx *domain.RawTransaction, w *domain.Wallet) (*Result, error)
}

// asset returns a plain wallet asset movement.
func asset(symbol string, qty decimal.Decimal) Movement {
	return Movement{AccountType: domain.AccountAsset, Symbol: symbol, Quantity: qty}
}

// position returns a protocol position movement.
func position(t domain.AccountType, p domain.Protocol, b domain.BalanceType, symbol string, qty decimal.Decimal) Movement {
	return Movement{AccountType: t, Protocol: p, BalanceType: b, Symbol: symbol, Quantity: qty}
}

// expense returns an expense counterpart movement.
func expense(symbol string, qty decimal.Decimal) Movement {
	return Movement{AccountType: domain.AccountExpense, Symbol: symbol, Quantity: qty}
}

// income returns an income counterpart movement.
func income(symbol string, qty decimal.Decimal) Movement {
	return Movement{AccountType: domain.AccountIncome, Symbol: symbol, Quantity: qty}
}

// outgoing reports whether the wallet is the sender of the transaction.
func outgoing(tx *domain.RawTransaction, w *domain.Wallet) bool {
	return EqualAddress(tx.Chain, tx.From, w.Address)
}

// EqualAddress compares addresses with chain-appropriate case sensitivity.
// Solana addresses are case-sensitive base58; EVM addresses are not.
func EqualAddress(chain domain.Chain, a, b string) bool {
	return domain.NormalizeAddress(chain, a) == domain.NormalizeAddress(chain, b)
}
