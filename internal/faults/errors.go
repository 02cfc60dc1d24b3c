// Package faults defines the typed failure taxonomy for transaction parsing
// and ledger assembly, plus the sink that persists classified failures.
package faults

import (
	"fmt"

	"chainledger/internal/domain"
)

// TxParseError indicates malformed transaction input.
type TxParseError struct {
	TxID   string
	Reason string
}

func (e *TxParseError) Error() string {
	return fmt.Sprintf("tx parse error for %s: %s", e.TxID, e.Reason)
}

// InternalParseError wraps an unexpected failure inside a parser.
type InternalParseError struct {
	TxID string
	Err  error
}

func (e *InternalParseError) Error() string {
	return fmt.Sprintf("internal parse error for %s: %v", e.TxID, e.Err)
}

func (e *InternalParseError) Unwrap() error { return e.Err }

// HandlerParseError indicates a protocol logic branch not implemented
// for this call shape.
type HandlerParseError struct {
	Protocol domain.Protocol
	Method   string
	Reason   string
}

func (e *HandlerParseError) Error() string {
	return fmt.Sprintf("handler for %s cannot parse %s: %s", e.Protocol, e.Method, e.Reason)
}

// UnhandledFunctionError indicates a recognized protocol with an
// unrecognized method.
type UnhandledFunctionError struct {
	Protocol domain.Protocol
	Method   string
}

func (e *UnhandledFunctionError) Error() string {
	return fmt.Sprintf("protocol %s has no handler for method %q", e.Protocol, e.Method)
}

// UnknownChainError indicates a transaction from an unsupported chain.
type UnknownChainError struct {
	Chain string
}

func (e *UnknownChainError) Error() string {
	return fmt.Sprintf("unknown chain %q", e.Chain)
}

// UnknownContractError indicates a contract address that resolves to no
// known protocol and no generic shape.
type UnknownContractError struct {
	Chain   domain.Chain
	Address string
}

func (e *UnknownContractError) Error() string {
	return fmt.Sprintf("unknown contract %s on %s", e.Address, e.Chain)
}

// UnknownTokenError indicates a token contract with no known symbol.
type UnknownTokenError struct {
	Chain   domain.Chain
	Address string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %s on %s", e.Address, e.Chain)
}

// UnknownTransactionInputError indicates call input that the decoder
// produced but no parser understands the shape of.
type UnknownTransactionInputError struct {
	TxID     string
	Selector string
}

func (e *UnknownTransactionInputError) Error() string {
	return fmt.Sprintf("unknown transaction input %q for %s", e.Selector, e.TxID)
}

// UnsupportedEventsError indicates an event combination not modeled
// by the selected parser.
type UnsupportedEventsError struct {
	Protocol domain.Protocol
	Events   []string
}

func (e *UnsupportedEventsError) Error() string {
	return fmt.Sprintf("unsupported event combination %v for %s", e.Events, e.Protocol)
}

// MissingPriceError indicates no price resolved for a symbol within the
// configured lookback window.
type MissingPriceError struct {
	Symbol    string
	Timestamp int64
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price for %s at %d", e.Symbol, e.Timestamp)
}

// BalanceError indicates a violated double-entry or lot-coverage invariant.
// During gains matching it is fatal for the affected scope.
type BalanceError struct {
	Scope  string // entry ID or gains scope key
	Symbol string
	Reason string
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("balance violation in %s (%s): %s", e.Scope, e.Symbol, e.Reason)
}
