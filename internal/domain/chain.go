package domain

import "strings"

// Chain identifies the network a raw transaction was loaded from.
type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainBSC       Chain = "bsc"
	ChainPolygon   Chain = "polygon"
	ChainArbitrum  Chain = "arbitrum"
	ChainOptimism  Chain = "optimism"
	ChainAvalanche Chain = "avalanche"
	ChainBase      Chain = "base"
	ChainSolana    Chain = "solana"
)

// String returns the string representation of Chain.
func (c Chain) String() string {
	return string(c)
}

// IsValid checks if the chain is a supported value.
func (c Chain) IsValid() bool {
	switch c {
	case ChainEthereum, ChainBSC, ChainPolygon, ChainArbitrum,
		ChainOptimism, ChainAvalanche, ChainBase, ChainSolana:
		return true
	}
	return false
}

// NormalizeAddress canonicalizes an address for comparison and indexing.
// EVM addresses are case-insensitive hex; Solana base58 is case-sensitive.
func NormalizeAddress(c Chain, address string) string {
	if c == ChainSolana {
		return address
	}
	return strings.ToLower(address)
}

// NativeSymbol returns the gas token symbol for the chain.
func (c Chain) NativeSymbol() string {
	switch c {
	case ChainEthereum, ChainArbitrum, ChainOptimism, ChainBase:
		return "ETH"
	case ChainBSC:
		return "BNB"
	case ChainPolygon:
		return "MATIC"
	case ChainAvalanche:
		return "AVAX"
	case ChainSolana:
		return "SOL"
	default:
		return ""
	}
}
