package parse

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

func TestSwapParser_NativeForToken(t *testing.T) {
	w := testWallet()
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  walletAddr,
		To:    "0x7a250d5630b4cf539739df2c5dacb4c659f2488d",
		Value: decimal.NewFromInt(2),
		Decoded: &domain.DecodedCall{
			Method: "swapExactETHForTokens(uint256,address[],address,uint256)",
			Events: []domain.EventLog{{
				Address: usdcAddr,
				Name:    "Transfer",
				Params:  map[string]string{"from": "0xpool", "to": walletAddr, "value": "4000"},
			}},
			TokenSyms: map[string]string{usdcAddr: "USDC"},
		},
	}

	res, err := NewSwapParser(domain.ProtocolUniswapV2).Parse(tx, w)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Type != domain.EntrySwap {
		t.Errorf("type mismatch: got %s", res.Type)
	}
	if len(res.Movements) != 4 {
		t.Fatalf("movement count: got %d, want 4", len(res.Movements))
	}

	sums := sumBySymbol(res.Movements)
	for sym, sum := range sums {
		if !sum.IsZero() {
			t.Errorf("symbol %s nets to %s, want 0", sym, sum)
		}
	}

	// Sold side first: asset -2 ETH with expense counterpart.
	if res.Movements[0].Symbol != "ETH" || !res.Movements[0].Quantity.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("sold asset movement: %s %s", res.Movements[0].Symbol, res.Movements[0].Quantity)
	}
	if res.Movements[1].AccountType != domain.AccountExpense {
		t.Errorf("sold counterpart: got %s", res.Movements[1].AccountType)
	}
	// Bought side: income counterpart then asset +4000 USDC.
	if res.Movements[2].AccountType != domain.AccountIncome {
		t.Errorf("bought counterpart: got %s", res.Movements[2].AccountType)
	}
	if res.Movements[3].Symbol != "USDC" || !res.Movements[3].Quantity.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("bought asset movement: %s %s", res.Movements[3].Symbol, res.Movements[3].Quantity)
	}
}

func TestSwapParser_IntermediateHopsNetOut(t *testing.T) {
	w := testWallet()
	wethAddr := "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	// Multi-hop swap: USDC out, WETH touches the wallet both ways, DAI in.
	daiAddr := "0x6b175474e89094c44da98b954eedeac495271d0f"
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  walletAddr,
		To:    "0xe592427a0aece92de3edee1f18e0157c05861564",
		Decoded: &domain.DecodedCall{
			Method: "exactInput(bytes)",
			Events: []domain.EventLog{
				{Address: usdcAddr, Name: "Transfer", Params: map[string]string{"from": walletAddr, "to": "0xpool1", "value": "1000"}},
				{Address: wethAddr, Name: "Transfer", Params: map[string]string{"from": "0xpool1", "to": walletAddr, "value": "1"}},
				{Address: wethAddr, Name: "Transfer", Params: map[string]string{"from": walletAddr, "to": "0xpool2", "value": "1"}},
				{Address: daiAddr, Name: "Transfer", Params: map[string]string{"from": "0xpool2", "to": walletAddr, "value": "995"}},
			},
			TokenSyms: map[string]string{usdcAddr: "USDC", wethAddr: "WETH", daiAddr: "DAI"},
		},
	}

	res, err := NewSwapParser(domain.ProtocolUniswapV3).Parse(tx, w)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// WETH nets to zero and must not appear.
	for _, m := range res.Movements {
		if m.Symbol == "WETH" {
			t.Error("intermediate hop symbol leaked into movements")
		}
	}
	if len(res.Movements) != 4 {
		t.Fatalf("movement count: got %d, want 4", len(res.Movements))
	}
}

func TestSwapParser_OneSidedFlowUnsupported(t *testing.T) {
	w := testWallet()
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  walletAddr,
		To:    "0xbebc44782c7db0a1a60cb6fe97d0b483032ff1c7",
		Decoded: &domain.DecodedCall{
			Method: "exchange(int128,int128,uint256,uint256)",
			Events: []domain.EventLog{{
				Address: usdcAddr,
				Name:    "Transfer",
				Params:  map[string]string{"from": walletAddr, "to": "0xpool", "value": "100"},
			}},
			TokenSyms: map[string]string{usdcAddr: "USDC"},
		},
	}

	_, err := NewSwapParser(domain.ProtocolCurve).Parse(tx, w)
	var unsupported *faults.UnsupportedEventsError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedEventsError, got %v", err)
	}
	if unsupported.Protocol != domain.ProtocolCurve {
		t.Errorf("protocol mismatch: got %s", unsupported.Protocol)
	}
}
