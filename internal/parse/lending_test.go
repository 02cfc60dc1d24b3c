package parse

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

func TestAaveParser_Deposit(t *testing.T) {
	w := testWallet()
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  walletAddr,
		To:    "0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9",
		Decoded: &domain.DecodedCall{
			Method:    "deposit(address,uint256,address,uint16)",
			Args:      map[string]string{"asset": usdcAddr, "amount": "3000"},
			TokenSyms: map[string]string{usdcAddr: "USDC"},
		},
	}

	res, err := NewAaveParser().Parse(tx, w)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Type != domain.EntryDeposit {
		t.Errorf("type mismatch: got %s", res.Type)
	}
	if len(res.Movements) != 2 {
		t.Fatalf("movement count: got %d, want 2", len(res.Movements))
	}

	// Plain wallet holding decreases, the supply position absorbs it.
	plain, pos := res.Movements[0], res.Movements[1]
	if plain.Protocol != "" || !plain.Quantity.Equal(decimal.NewFromInt(-3000)) {
		t.Errorf("plain movement: protocol=%q qty=%s", plain.Protocol, plain.Quantity)
	}
	if pos.Protocol != domain.ProtocolAaveV2 || pos.BalanceType != domain.BalanceSupply {
		t.Errorf("position movement: protocol=%s balance=%s", pos.Protocol, pos.BalanceType)
	}
	if !pos.Quantity.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("position quantity: got %s", pos.Quantity)
	}
}

func TestAaveParser_Borrow(t *testing.T) {
	w := testWallet()
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  walletAddr,
		To:    "0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9",
		Decoded: &domain.DecodedCall{
			Method:    "borrow(address,uint256,uint256,uint16,address)",
			Args:      map[string]string{"asset": usdcAddr, "amount": "1000"},
			TokenSyms: map[string]string{usdcAddr: "USDC"},
		},
	}

	res, err := NewAaveParser().Parse(tx, w)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Type != domain.EntryBorrow {
		t.Errorf("type mismatch: got %s", res.Type)
	}
	liability := res.Movements[1]
	if liability.AccountType != domain.AccountLiability || liability.BalanceType != domain.BalanceBorrow {
		t.Errorf("liability movement: type=%s balance=%s", liability.AccountType, liability.BalanceType)
	}
	if !liability.Quantity.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("liability quantity: got %s", liability.Quantity)
	}
}

func TestAaveParser_Liquidation(t *testing.T) {
	w := testWallet()
	wethAddr := "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  externalAddr,
		To:    "0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9",
		Decoded: &domain.DecodedCall{
			Method: "liquidationCall(address,address,address,uint256,bool)",
			Args: map[string]string{
				"collateralAsset":            wethAddr,
				"debtAsset":                  usdcAddr,
				"liquidatedCollateralAmount": "2",
				"debtToCover":                "3500",
			},
			TokenSyms: map[string]string{wethAddr: "WETH", usdcAddr: "USDC"},
		},
	}

	res, err := NewAaveParser().Parse(tx, w)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Type != domain.EntryLiquidation {
		t.Errorf("type mismatch: got %s", res.Type)
	}
	if len(res.Movements) != 4 {
		t.Fatalf("movement count: got %d, want 4", len(res.Movements))
	}
	for sym, sum := range sumBySymbol(res.Movements) {
		if !sum.IsZero() {
			t.Errorf("symbol %s nets to %s, want 0", sym, sum)
		}
	}
}

func TestAaveParser_MissingAmount(t *testing.T) {
	w := testWallet()
	tx := &domain.RawTransaction{
		ID:    "tx-missing-amount",
		Chain: domain.ChainEthereum,
		To:    "0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9",
		Decoded: &domain.DecodedCall{
			Method:    "deposit(address,uint256,address,uint16)",
			Args:      map[string]string{"asset": usdcAddr},
			TokenSyms: map[string]string{usdcAddr: "USDC"},
		},
	}

	_, err := NewAaveParser().Parse(tx, w)
	var txParse *faults.TxParseError
	if !errors.As(err, &txParse) {
		t.Fatalf("expected TxParseError, got %v", err)
	}
}

func TestCompoundParser_Mint(t *testing.T) {
	w := testWallet()
	cUSDC := "0x39aa39c021dfbae8fac545936693ac917d5e7563"
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  walletAddr,
		To:    cUSDC,
		Decoded: &domain.DecodedCall{
			Method:    "mint(uint256)",
			Args:      map[string]string{"mintAmount": "500"},
			TokenSyms: map[string]string{cUSDC: "USDC"},
		},
	}

	res, err := NewCompoundParser().Parse(tx, w)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Type != domain.EntryDeposit {
		t.Errorf("type mismatch: got %s", res.Type)
	}
	pos := res.Movements[1]
	if pos.Protocol != domain.ProtocolCompound || pos.BalanceType != domain.BalanceSupply {
		t.Errorf("position movement: protocol=%s balance=%s", pos.Protocol, pos.BalanceType)
	}
}

func TestCompoundParser_RepayBorrow(t *testing.T) {
	w := testWallet()
	cDAI := "0x5d3a536e4d6dbd6114cc1ead35777bab948e3643"
	tx := &domain.RawTransaction{
		Chain: domain.ChainEthereum,
		From:  walletAddr,
		To:    cDAI,
		Decoded: &domain.DecodedCall{
			Method:    "repayBorrow(uint256)",
			Args:      map[string]string{"repayAmount": "750"},
			TokenSyms: map[string]string{cDAI: "DAI"},
		},
	}

	res, err := NewCompoundParser().Parse(tx, w)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Type != domain.EntryRepay {
		t.Errorf("type mismatch: got %s", res.Type)
	}
	// Debt position shrinks toward zero, wallet holding pays for it.
	if !res.Movements[0].Quantity.Equal(decimal.NewFromInt(750)) {
		t.Errorf("liability movement: got %s", res.Movements[0].Quantity)
	}
	if !res.Movements[1].Quantity.Equal(decimal.NewFromInt(-750)) {
		t.Errorf("asset movement: got %s", res.Movements[1].Quantity)
	}
}

func TestArgAmount_RejectsNonPositive(t *testing.T) {
	tx := &domain.RawTransaction{
		ID:      "tx-zero",
		Decoded: &domain.DecodedCall{Args: map[string]string{"amount": "0"}},
	}
	if _, err := argAmount(tx, "amount"); err == nil {
		t.Error("expected error for zero amount")
	}

	tx.Decoded.Args["amount"] = "-5"
	if _, err := argAmount(tx, "amount"); err == nil {
		t.Error("expected error for negative amount")
	}
}
