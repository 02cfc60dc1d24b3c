package protocol

import (
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"chainledger/internal/domain"
)

// Confidence levels attached to a resolution.
const (
	ConfidenceExact     = 1.0 // contract address matched the registry
	ConfidenceHeuristic = 0.7 // method signature matched a known family
	ConfidenceGeneric   = 0.4 // simple transfer shape
	ConfidenceNone      = 0.0 // unknown
)

// Resolution is the outcome of protocol resolution for one transaction.
type Resolution struct {
	Protocol   domain.Protocol
	Confidence float64
}

// Resolver inspects raw transactions and decoded payloads to select a
// protocol. It never fails; absence of a match degrades to unknown.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry *Registry) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Resolver{registry: registry}
}

// Resolve selects a protocol for the transaction.
// Order: exact contract-address match, then method-signature heuristic,
// then generic transfer shape, then unknown.
func (r *Resolver) Resolve(tx *domain.RawTransaction) Resolution {
	if tx == nil {
		return Resolution{Protocol: domain.ProtocolUnknown, Confidence: ConfidenceNone}
	}

	if p, ok := r.registry.Lookup(tx.Chain, tx.To); ok {
		return Resolution{Protocol: p, Confidence: ConfidenceExact}
	}

	if p, ok := methodHeuristic(tx.Decoded); ok {
		return Resolution{Protocol: p, Confidence: ConfidenceHeuristic}
	}

	if isGenericTransfer(tx) {
		return Resolution{Protocol: domain.ProtocolGeneric, Confidence: ConfidenceGeneric}
	}

	return Resolution{Protocol: domain.ProtocolUnknown, Confidence: ConfidenceNone}
}

// methodHeuristic maps well-known method-name families to protocols when the
// contract address itself is not registered (forks, alternate deployments).
func methodHeuristic(d *domain.DecodedCall) (domain.Protocol, bool) {
	if d == nil || d.Method == "" {
		return domain.ProtocolUnknown, false
	}
	name := methodName(d.Method)

	switch {
	case strings.HasPrefix(name, "swapExact"), strings.HasPrefix(name, "swapTokens"):
		return domain.ProtocolUniswapV2, true
	case name == "exactInput", name == "exactInputSingle",
		name == "exactOutput", name == "exactOutputSingle":
		return domain.ProtocolUniswapV3, true
	case name == "exchange", name == "exchange_underlying":
		return domain.ProtocolCurve, true
	case name == "deposit" && d.Event("Mint") != nil,
		name == "borrow", name == "repayBorrow":
		return domain.ProtocolCompound, true
	case name == "flashLoan", name == "liquidationCall":
		return domain.ProtocolAaveV2, true
	case name == "submit" && d.Event("Submitted") != nil:
		return domain.ProtocolLido, true
	case name == "transferTokens" && d.Event("LogMessagePublished") != nil:
		return domain.ProtocolWormhole, true
	}

	return domain.ProtocolUnknown, false
}

// isGenericTransfer reports whether the transaction has the simple transfer
// shape: native value moved with no decoded call, or a bare ERC-20/SPL
// Transfer event set.
func isGenericTransfer(tx *domain.RawTransaction) bool {
	if tx.Decoded == nil {
		return tx.Value.Sign() != 0 && validAddress(tx.Chain, tx.To)
	}

	switch methodName(tx.Decoded.Method) {
	case "", "transfer", "transferFrom", "approve":
	default:
		return false
	}
	for _, e := range tx.Decoded.Events {
		if e.Name != "Transfer" {
			return false
		}
	}
	return len(tx.Decoded.Events) > 0 || tx.Decoded.Method != ""
}

// methodName strips the argument list from a method signature.
func methodName(sig string) string {
	if i := strings.IndexByte(sig, '('); i >= 0 {
		return sig[:i]
	}
	return sig
}

// validAddress reports whether the address is well-formed for the chain.
// EVM addresses are 20-byte hex; Solana addresses are 32-byte base58 points.
func validAddress(chain domain.Chain, address string) bool {
	if chain == domain.ChainSolana {
		return validSolanaAddress(address)
	}
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return false
	}
	for _, c := range address[2:] {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

// validSolanaAddress checks base58 shape. Off-curve PDA addresses are valid
// transfer destinations, so only byte length is strict.
func validSolanaAddress(address string) bool {
	raw, err := base58.Decode(address)
	return err == nil && len(raw) == 32
}

// OnCurve reports whether a Solana address decodes to a canonical ed25519
// curve point, i.e. can be a wallet keypair address rather than a
// program-derived one.
func OnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
