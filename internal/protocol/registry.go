// Package protocol selects which protocol parser should read a raw
// transaction. Resolution never fails: absence of a match degrades to
// the generic shape or to unknown.
package protocol

import (
	"strings"

	"chainledger/internal/domain"
)

// Known protocol contract addresses per chain.
// Addresses are matched case-insensitively for EVM chains.
const (
	// UniswapV2Router is the Uniswap V2 router on Ethereum mainnet.
	UniswapV2Router = "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"
	// UniswapV3Router is the Uniswap V3 SwapRouter on Ethereum mainnet.
	UniswapV3Router = "0xe592427a0aece92de3edee1f18e0157c05861564"
	// AaveV2LendingPool is the Aave V2 lending pool on Ethereum mainnet.
	AaveV2LendingPool = "0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9"
	// CompoundComptroller is the Compound comptroller on Ethereum mainnet.
	CompoundComptroller = "0x3d9819210a31b4961b30ef54be2aed79b9c9cd3b"
	// CurveTriPool is the Curve 3pool on Ethereum mainnet.
	CurveTriPool = "0xbebc44782c7db0a1a60cb6fe97d0b483032ff1c7"
	// LidoStETH is the Lido staked ETH contract on Ethereum mainnet.
	LidoStETH = "0xae7ab96520de3a18e5e111b5eaab095312d7fe84"
	// WormholeTokenBridge is the Wormhole token bridge on Ethereum mainnet.
	WormholeTokenBridge = "0x3ee18b2214aff97000d974cf647e7c347e8fa585"
	// SPLTokenProgram is the SPL token program on Solana.
	SPLTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// contractEntry maps one known contract to a protocol.
type contractEntry struct {
	chain    domain.Chain
	protocol domain.Protocol
}

// Registry holds the known-protocol contract registry.
type Registry struct {
	contracts map[string]contractEntry // normalized address -> entry
}

// NewRegistry creates a registry pre-populated with the default known contracts.
func NewRegistry() *Registry {
	r := &Registry{contracts: make(map[string]contractEntry)}

	r.Register(domain.ChainEthereum, UniswapV2Router, domain.ProtocolUniswapV2)
	r.Register(domain.ChainEthereum, UniswapV3Router, domain.ProtocolUniswapV3)
	r.Register(domain.ChainEthereum, AaveV2LendingPool, domain.ProtocolAaveV2)
	r.Register(domain.ChainEthereum, CompoundComptroller, domain.ProtocolCompound)
	r.Register(domain.ChainEthereum, CurveTriPool, domain.ProtocolCurve)
	r.Register(domain.ChainEthereum, LidoStETH, domain.ProtocolLido)
	r.Register(domain.ChainEthereum, WormholeTokenBridge, domain.ProtocolWormhole)
	r.Register(domain.ChainSolana, SPLTokenProgram, domain.ProtocolSPLToken)

	// Routers and pools are deployed at the same addresses on most EVM L2s.
	for _, chain := range []domain.Chain{
		domain.ChainPolygon, domain.ChainArbitrum, domain.ChainOptimism, domain.ChainBase,
	} {
		r.Register(chain, UniswapV3Router, domain.ProtocolUniswapV3)
	}

	return r
}

// Register adds a contract address for a chain. Later registrations for the
// same (chain, address) overwrite earlier ones.
func (r *Registry) Register(chain domain.Chain, address string, protocol domain.Protocol) {
	r.contracts[contractKey(chain, address)] = contractEntry{chain: chain, protocol: protocol}
}

// Lookup returns the protocol registered for (chain, address), if any.
func (r *Registry) Lookup(chain domain.Chain, address string) (domain.Protocol, bool) {
	e, ok := r.contracts[contractKey(chain, address)]
	if !ok {
		return domain.ProtocolUnknown, false
	}
	return e.protocol, true
}

func contractKey(chain domain.Chain, address string) string {
	if chain == domain.ChainSolana {
		// Solana addresses are case-sensitive base58.
		return string(chain) + "|" + address
	}
	return string(chain) + "|" + strings.ToLower(address)
}
