package domain

// Protocol identifies which on-chain (or exchange) protocol produced a transaction.
// Resolution never fails: absence of a match degrades to ProtocolUnknown.
type Protocol string

const (
	ProtocolUnknown   Protocol = "unknown"
	ProtocolGeneric   Protocol = "generic"
	ProtocolUniswapV2 Protocol = "uniswap_v2"
	ProtocolUniswapV3 Protocol = "uniswap_v3"
	ProtocolAaveV2    Protocol = "aave_v2"
	ProtocolCompound  Protocol = "compound"
	ProtocolCurve     Protocol = "curve"
	ProtocolLido      Protocol = "lido"
	ProtocolWormhole  Protocol = "wormhole"
	ProtocolSPLToken  Protocol = "spl_token"
	ProtocolCEX       Protocol = "cex"
)

// String returns the string representation of Protocol.
func (p Protocol) String() string {
	return string(p)
}

// IsValid checks if the protocol is a known value.
func (p Protocol) IsValid() bool {
	switch p {
	case ProtocolUnknown, ProtocolGeneric, ProtocolUniswapV2, ProtocolUniswapV3,
		ProtocolAaveV2, ProtocolCompound, ProtocolCurve, ProtocolLido,
		ProtocolWormhole, ProtocolSPLToken, ProtocolCEX:
		return true
	}
	return false
}
