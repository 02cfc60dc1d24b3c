package faults

import (
	"errors"

	"chainledger/internal/domain"
)

// Classify maps an error raised during parsing or assembly to its
// taxonomy type. Unrecognized errors classify as INTERNAL_PARSE so
// nothing is silently swallowed.
func Classify(err error) domain.ErrorType {
	var (
		txParse       *TxParseError
		internal      *InternalParseError
		handler       *HandlerParseError
		unhandledFn   *UnhandledFunctionError
		unknownChain  *UnknownChainError
		unknownCtr    *UnknownContractError
		unknownToken  *UnknownTokenError
		unknownInput  *UnknownTransactionInputError
		unsupportedEv *UnsupportedEventsError
		missingPrice  *MissingPriceError
		balance       *BalanceError
	)

	switch {
	case errors.As(err, &txParse):
		return domain.ErrorTxParse
	case errors.As(err, &handler):
		return domain.ErrorHandlerParse
	case errors.As(err, &unhandledFn):
		return domain.ErrorUnhandledFunction
	case errors.As(err, &unknownChain):
		return domain.ErrorUnknownChain
	case errors.As(err, &unknownCtr):
		return domain.ErrorUnknownContract
	case errors.As(err, &unknownToken):
		return domain.ErrorUnknownToken
	case errors.As(err, &unknownInput):
		return domain.ErrorUnknownTxInput
	case errors.As(err, &unsupportedEv):
		return domain.ErrorUnsupportedEvents
	case errors.As(err, &missingPrice):
		return domain.ErrorMissingPrice
	case errors.As(err, &balance):
		return domain.ErrorBalance
	case errors.As(err, &internal):
		return domain.ErrorInternalParse
	default:
		return domain.ErrorInternalParse
	}
}
