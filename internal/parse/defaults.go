package parse

import (
	"fmt"

	"chainledger/internal/domain"
)

// UniswapV2Methods are the v2 router swap signatures.
func UniswapV2Methods() []string {
	return []string{
		"swapExactTokensForTokens",
		"swapTokensForExactTokens",
		"swapExactETHForTokens",
		"swapTokensForExactETH",
		"swapExactTokensForETH",
		"swapETHForExactTokens",
	}
}

// UniswapV3Methods are the v3 router swap signatures.
func UniswapV3Methods() []string {
	return []string{
		"exactInput",
		"exactInputSingle",
		"exactOutput",
		"exactOutputSingle",
		"multicall",
	}
}

// CurveMethods are the pool exchange signatures.
func CurveMethods() []string {
	return []string{"exchange", "exchange_underlying"}
}

// NewDefaultRegistry builds a registry with every built-in parser bound to
// its protocol and method set.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()

	regs := []struct {
		protocol domain.Protocol
		methods  []string
		parser   Parser
	}{
		{domain.ProtocolGeneric, nil, NewGenericParser()},
		{domain.ProtocolUniswapV2, UniswapV2Methods(), NewSwapParser(domain.ProtocolUniswapV2)},
		{domain.ProtocolUniswapV3, UniswapV3Methods(), NewSwapParser(domain.ProtocolUniswapV3)},
		{domain.ProtocolCurve, CurveMethods(), NewSwapParser(domain.ProtocolCurve)},
		{domain.ProtocolAaveV2, AaveMethods(), NewAaveParser()},
		{domain.ProtocolCompound, CompoundMethods(), NewCompoundParser()},
		{domain.ProtocolLido, LidoMethods(), NewLidoParser()},
		{domain.ProtocolWormhole, BridgeMethods(), NewBridgeParser()},
		{domain.ProtocolSPLToken, SPLMethods(), NewSPLParser()},
		{domain.ProtocolCEX, CEXMethods(), NewCEXParser()},
	}
	for _, reg := range regs {
		if err := r.Register(reg.protocol, reg.methods, reg.parser); err != nil {
			return nil, fmt.Errorf("build default registry: %w", err)
		}
	}
	return r, nil
}
