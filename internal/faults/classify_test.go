package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chainledger/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want domain.ErrorType
	}{
		{&TxParseError{TxID: "t1", Reason: "bad input"}, domain.ErrorTxParse},
		{&InternalParseError{TxID: "t1", Err: errors.New("boom")}, domain.ErrorInternalParse},
		{&HandlerParseError{Protocol: domain.ProtocolAaveV2, Method: "deposit"}, domain.ErrorHandlerParse},
		{&UnhandledFunctionError{Protocol: domain.ProtocolUniswapV2, Method: "zap"}, domain.ErrorUnhandledFunction},
		{&UnknownChainError{Chain: "moonchain"}, domain.ErrorUnknownChain},
		{&UnknownContractError{Chain: domain.ChainEthereum, Address: "0x1"}, domain.ErrorUnknownContract},
		{&UnknownTokenError{Chain: domain.ChainEthereum, Address: "0x2"}, domain.ErrorUnknownToken},
		{&UnknownTransactionInputError{TxID: "t1", Selector: "0xdead"}, domain.ErrorUnknownTxInput},
		{&UnsupportedEventsError{Protocol: domain.ProtocolCurve}, domain.ErrorUnsupportedEvents},
		{&MissingPriceError{Symbol: "PEPE", Timestamp: 1}, domain.ErrorMissingPrice},
		{&BalanceError{Scope: "e1|ETH", Reason: "oversell"}, domain.ErrorBalance},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%T): got %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestClassify_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("assemble: %w", &MissingPriceError{Symbol: "ETH", Timestamp: 5})
	if got := Classify(wrapped); got != domain.ErrorMissingPrice {
		t.Errorf("wrapped error: got %s, want %s", got, domain.ErrorMissingPrice)
	}
}

func TestClassify_UnknownFallsBackToInternal(t *testing.T) {
	if got := Classify(errors.New("surprise")); got != domain.ErrorInternalParse {
		t.Errorf("plain error: got %s, want %s", got, domain.ErrorInternalParse)
	}
}

// recorderFunc adapts a function to the Recorder interface.
type recorderFunc func(ctx context.Context, rec *domain.ParseErrorRecord) error

func (f recorderFunc) Insert(ctx context.Context, rec *domain.ParseErrorRecord) error {
	return f(ctx, rec)
}

func TestSink_Record(t *testing.T) {
	var stored *domain.ParseErrorRecord
	sink := NewSink(recorderFunc(func(_ context.Context, rec *domain.ParseErrorRecord) error {
		stored = rec
		return nil
	}))

	rec, err := sink.Record(context.Background(), "w1", "tx1", &UnknownContractError{
		Chain:   domain.ChainEthereum,
		Address: "0xdead",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if stored == nil {
		t.Fatal("record was not persisted")
	}
	if rec.Type != domain.ErrorUnknownContract {
		t.Errorf("type mismatch: got %s", rec.Type)
	}
	if rec.WalletID != "w1" || rec.RawTxID != "tx1" {
		t.Errorf("ids mismatch: wallet=%s raw=%s", rec.WalletID, rec.RawTxID)
	}
	if rec.ID == "" || rec.Message == "" || rec.CreatedAt == 0 {
		t.Error("record missing generated fields")
	}
	if rec.Resolved {
		t.Error("new record must be unresolved")
	}
}
