package domain

import "github.com/shopspring/decimal"

// TxStatus tracks a raw transaction through the parsing lifecycle.
type TxStatus string

const (
	TxStatusLoaded  TxStatus = "LOADED"
	TxStatusParsed  TxStatus = "PARSED"
	TxStatusError   TxStatus = "ERROR"
	TxStatusIgnored TxStatus = "IGNORED"
)

// String returns the string representation of TxStatus.
func (s TxStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s TxStatus) IsValid() bool {
	switch s {
	case TxStatusLoaded, TxStatusParsed, TxStatusError, TxStatusIgnored:
		return true
	}
	return false
}

// RawTransaction is a per-chain transaction record supplied by a loader.
// Corresponds to raw_transactions table in PostgreSQL. The core reads it;
// only the lifecycle controller mutates Status.
type RawTransaction struct {
	ID          string          // PRIMARY KEY, deterministic hash
	WalletID    string          // FK to owning wallet
	Chain       Chain           // source network
	Hash        string          // on-chain transaction hash / signature
	BlockNumber int64           // block number or slot
	Timestamp   int64           // Unix timestamp in milliseconds
	From        string          // sender address
	To          string          // recipient / contract address
	Value       decimal.Decimal // native value moved, asset-native units
	GasUsed     decimal.Decimal // gas consumed, native units
	Decoded     *DecodedCall    // decoded call payload (nullable)
	Status      TxStatus        // LOADED | PARSED | ERROR | IGNORED
	CreatedAt   int64           // record creation timestamp (ms)
}

// DecodedCall is the opaque decoded-call payload attached to a raw transaction
// by the external decoding collaborator.
type DecodedCall struct {
	Method    string            // method signature, e.g. "swapExactTokensForTokens(...)"
	Selector  string            // 4-byte selector hex, or instruction discriminator
	Args      map[string]string // decoded arguments, stringly typed by the decoder
	Events    []EventLog        // emitted event logs in log order
	TokenSyms map[string]string // token contract address -> symbol, when known
}

// EventLog is one decoded event emitted by a transaction.
type EventLog struct {
	Address string            // emitting contract
	Name    string            // event name, e.g. "Transfer", "Swap"
	Topics  []string          // raw indexed topics
	Params  map[string]string // decoded parameters
	Index   int               // log index within the transaction
}

// Event returns the first event with the given name, or nil.
func (d *DecodedCall) Event(name string) *EventLog {
	if d == nil {
		return nil
	}
	for i := range d.Events {
		if d.Events[i].Name == name {
			return &d.Events[i]
		}
	}
	return nil
}

// EventsNamed returns all events with the given name, in log order.
func (d *DecodedCall) EventsNamed(name string) []EventLog {
	if d == nil {
		return nil
	}
	var out []EventLog
	for _, e := range d.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
