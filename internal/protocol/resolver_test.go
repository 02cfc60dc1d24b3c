package protocol

import (
	"testing"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
)

func TestResolve_ExactContractMatch(t *testing.T) {
	r := NewResolver(NewRegistry())

	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		// Mixed case must still match: EVM addresses are case-insensitive.
		To: "0x7a250D5630B4cF539739dF2C5dAcb4c659F2488D",
	}
	res := r.Resolve(tx)
	if res.Protocol != domain.ProtocolUniswapV2 {
		t.Errorf("protocol mismatch: got %s, want %s", res.Protocol, domain.ProtocolUniswapV2)
	}
	if res.Confidence != ConfidenceExact {
		t.Errorf("confidence mismatch: got %v, want %v", res.Confidence, ConfidenceExact)
	}
}

func TestResolve_MethodHeuristic(t *testing.T) {
	r := NewResolver(NewRegistry())

	tx := &domain.RawTransaction{
		Chain: domain.ChainBSC,
		To:    "0x1234567890123456789012345678901234567890",
		Decoded: &domain.DecodedCall{
			Method: "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)",
		},
	}
	res := r.Resolve(tx)
	if res.Protocol != domain.ProtocolUniswapV2 {
		t.Errorf("protocol mismatch: got %s, want %s", res.Protocol, domain.ProtocolUniswapV2)
	}
	if res.Confidence != ConfidenceHeuristic {
		t.Errorf("confidence mismatch: got %v, want %v", res.Confidence, ConfidenceHeuristic)
	}
}

func TestResolve_GenericTransfer(t *testing.T) {
	r := NewResolver(NewRegistry())

	// Bare native transfer with no decoded call.
	native := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		To:    "0x1234567890123456789012345678901234567890",
		Value: decimal.NewFromInt(1),
	}
	res := r.Resolve(native)
	if res.Protocol != domain.ProtocolGeneric {
		t.Errorf("native transfer: got %s, want %s", res.Protocol, domain.ProtocolGeneric)
	}

	// ERC-20 transfer call with a Transfer event.
	token := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		To:    "0x1234567890123456789012345678901234567890",
		Decoded: &domain.DecodedCall{
			Method: "transfer(address,uint256)",
			Events: []domain.EventLog{{Name: "Transfer"}},
		},
	}
	res = r.Resolve(token)
	if res.Protocol != domain.ProtocolGeneric {
		t.Errorf("token transfer: got %s, want %s", res.Protocol, domain.ProtocolGeneric)
	}

	// Approvals follow the generic shape too.
	approve := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		To:    "0x1234567890123456789012345678901234567890",
		Decoded: &domain.DecodedCall{
			Method: "approve(address,uint256)",
		},
	}
	res = r.Resolve(approve)
	if res.Protocol != domain.ProtocolGeneric {
		t.Errorf("approve: got %s, want %s", res.Protocol, domain.ProtocolGeneric)
	}
}

func TestResolve_Unknown(t *testing.T) {
	r := NewResolver(NewRegistry())

	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		To:    "0x1234567890123456789012345678901234567890",
		Decoded: &domain.DecodedCall{
			Method: "obscureProtocolCall(bytes)",
			Events: []domain.EventLog{{Name: "Obscure"}},
		},
	}
	res := r.Resolve(tx)
	if res.Protocol != domain.ProtocolUnknown {
		t.Errorf("got %s, want %s", res.Protocol, domain.ProtocolUnknown)
	}
	if res.Confidence != ConfidenceNone {
		t.Errorf("confidence mismatch: got %v", res.Confidence)
	}
}

func TestRegistry_LookupNormalizesEVMOnly(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Lookup(domain.ChainSolana, SPLTokenProgram); !ok {
		t.Error("SPL token program not found")
	}
	// Solana addresses are case-sensitive; a case change must miss.
	if _, ok := r.Lookup(domain.ChainSolana, "tokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"); ok {
		t.Error("case-mangled Solana address unexpectedly matched")
	}
}

func TestOnCurve(t *testing.T) {
	// The SPL token program ID is a curve point.
	if !OnCurve(SPLTokenProgram) {
		t.Error("expected token program address to be on curve")
	}
	if OnCurve("not-base58-at-all!!") {
		t.Error("malformed address reported on curve")
	}
	if OnCurve("abc") {
		t.Error("short address reported on curve")
	}
}
