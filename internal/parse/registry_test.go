package parse

import (
	"errors"
	"testing"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

func TestRegistry_DispatchByMethod(t *testing.T) {
	r := NewRegistry()
	swap := NewSwapParser(domain.ProtocolUniswapV2)
	if err := r.Register(domain.ProtocolUniswapV2, UniswapV2Methods(), swap); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tx := &domain.RawTransaction{
		Chain:   domain.ChainEthereum,
		Decoded: &domain.DecodedCall{Method: "swapExactETHForTokens(uint256,address[],address,uint256)"},
	}
	p, err := r.Dispatch(domain.ProtocolUniswapV2, tx)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if p != swap {
		t.Error("dispatched wrong parser")
	}
}

func TestRegistry_UnknownProtocol(t *testing.T) {
	r := NewRegistry()
	tx := &domain.RawTransaction{Chain: domain.ChainEthereum, To: "0xdead"}

	_, err := r.Dispatch(domain.ProtocolCurve, tx)
	var unknownCtr *faults.UnknownContractError
	if !errors.As(err, &unknownCtr) {
		t.Fatalf("expected UnknownContractError, got %v", err)
	}
}

func TestRegistry_UnhandledMethod(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(domain.ProtocolCurve, CurveMethods(), NewSwapParser(domain.ProtocolCurve)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tx := &domain.RawTransaction{
		Chain:   domain.ChainEthereum,
		Decoded: &domain.DecodedCall{Method: "remove_liquidity(uint256,uint256[3])"},
	}
	_, err := r.Dispatch(domain.ProtocolCurve, tx)
	var unhandled *faults.UnhandledFunctionError
	if !errors.As(err, &unhandled) {
		t.Fatalf("expected UnhandledFunctionError, got %v", err)
	}
	if unhandled.Method != "remove_liquidity" {
		t.Errorf("method mismatch: got %s", unhandled.Method)
	}
}

func TestRegistry_RejectsDuplicateRegistrations(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(domain.ProtocolGeneric, nil, NewGenericParser()); err != nil {
		t.Fatalf("first protocol-wide registration failed: %v", err)
	}
	if err := r.Register(domain.ProtocolGeneric, nil, NewGenericParser()); err == nil {
		t.Error("expected error for duplicate protocol-wide parser")
	}

	if err := r.Register(domain.ProtocolAaveV2, []string{"deposit"}, NewAaveParser()); err != nil {
		t.Fatalf("method registration failed: %v", err)
	}
	if err := r.Register(domain.ProtocolAaveV2, []string{"deposit", "withdraw"}, NewAaveParser()); err == nil {
		t.Error("expected error for already covered method")
	}
}

func TestRegistry_RejectsNilParser(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(domain.ProtocolGeneric, nil, nil); err == nil {
		t.Error("expected error for nil parser")
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry failed: %v", err)
	}
	got := r.Protocols()
	want := []domain.Protocol{
		domain.ProtocolAaveV2, domain.ProtocolCEX, domain.ProtocolCompound,
		domain.ProtocolCurve, domain.ProtocolGeneric, domain.ProtocolLido,
		domain.ProtocolSPLToken, domain.ProtocolUniswapV2,
		domain.ProtocolUniswapV3, domain.ProtocolWormhole,
	}
	if len(got) != len(want) {
		t.Fatalf("protocol count mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("protocol %d mismatch: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMethodName(t *testing.T) {
	tx := &domain.RawTransaction{
		Decoded: &domain.DecodedCall{Method: "deposit(address,uint256,address,uint16)"},
	}
	if got := MethodName(tx); got != "deposit" {
		t.Errorf("got %s, want deposit", got)
	}
	if got := MethodName(&domain.RawTransaction{}); got != "" {
		t.Errorf("undecoded tx: got %q, want empty", got)
	}
}
