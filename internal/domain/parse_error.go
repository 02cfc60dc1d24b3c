package domain

// ErrorType classifies a failed parse attempt.
type ErrorType string

const (
	ErrorTxParse           ErrorType = "TX_PARSE"
	ErrorInternalParse     ErrorType = "INTERNAL_PARSE"
	ErrorHandlerParse      ErrorType = "HANDLER_PARSE"
	ErrorUnhandledFunction ErrorType = "UNHANDLED_FUNCTION"
	ErrorUnknownChain      ErrorType = "UNKNOWN_CHAIN"
	ErrorUnknownContract   ErrorType = "UNKNOWN_CONTRACT"
	ErrorUnknownToken      ErrorType = "UNKNOWN_TOKEN"
	ErrorUnknownTxInput    ErrorType = "UNKNOWN_TRANSACTION_INPUT"
	ErrorUnsupportedEvents ErrorType = "UNSUPPORTED_EVENTS"
	ErrorMissingPrice      ErrorType = "MISSING_PRICE"
	ErrorBalance           ErrorType = "BALANCE"
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	return string(t)
}

// IsValid checks if the error type is a valid value.
func (t ErrorType) IsValid() bool {
	switch t {
	case ErrorTxParse, ErrorInternalParse, ErrorHandlerParse,
		ErrorUnhandledFunction, ErrorUnknownChain, ErrorUnknownContract,
		ErrorUnknownToken, ErrorUnknownTxInput, ErrorUnsupportedEvents,
		ErrorMissingPrice, ErrorBalance:
		return true
	}
	return false
}

// ParseErrorRecord captures one failed parse attempt for remediation.
// Created only by the error sink; only Resolved is mutated afterwards.
// Corresponds to parse_errors table in PostgreSQL.
type ParseErrorRecord struct {
	ID         string    // PRIMARY KEY, uuid
	RawTxID    string    // originating raw transaction, may be empty
	WalletID   string    // wallet being parsed
	Type       ErrorType // one of the 11 error types
	Message    string    // human-readable failure description
	Diagnostic string    // optional diagnostic payload (JSON or free text)
	Resolved   bool      // flipped by the remediation workflow
	CreatedAt  int64     // record creation timestamp (ms)
}
