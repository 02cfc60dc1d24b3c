package gains

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
	"chainledger/internal/storage/memory"
)

const (
	assetETH  = "acct-asset-eth"
	assetSOL  = "acct-asset-sol"
	incomeETH = "acct-income-eth"
	supplyETH = "acct-supply-eth"
)

// fixture wires memory stores with one plain asset account per symbol, an
// income counterpart and one protocol position account.
type fixture struct {
	journal  *memory.JournalStore
	accounts *memory.AccountStore
	events   *memory.GainEventStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		journal:  memory.NewJournalStore(),
		accounts: memory.NewAccountStore(),
		events:   memory.NewGainEventStore(),
	}
	ctx := context.Background()
	for _, a := range []*domain.Account{
		{ID: assetETH, EntityID: "e1", Label: "e1:ASSET:ETH", Type: domain.AccountAsset, Symbol: "ETH"},
		{ID: assetSOL, EntityID: "e1", Label: "e1:ASSET:SOL", Type: domain.AccountAsset, Symbol: "SOL"},
		{ID: incomeETH, EntityID: "e1", Label: "e1:INCOME:ETH", Type: domain.AccountIncome, Symbol: "ETH"},
		{ID: supplyETH, EntityID: "e1", Label: "e1:ASSET:ETH:aave_v2:supply", Type: domain.AccountAsset,
			Symbol: "ETH", Protocol: domain.ProtocolAaveV2, BalanceType: domain.BalanceSupply},
	} {
		if err := f.accounts.Insert(ctx, a); err != nil {
			t.Fatalf("insert account %s: %v", a.ID, err)
		}
	}
	return f
}

func (f *fixture) engine(t *testing.T, mode domain.GainsMode, threshold decimal.Decimal) *Engine {
	t.Helper()
	e, err := NewEngine(Options{
		Journal:      f.journal,
		Accounts:     f.accounts,
		Events:       f.events,
		Mode:         mode,
		ThresholdUSD: threshold,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func (f *fixture) addEntry(t *testing.T, id string, typ domain.EntryType, walletID string, ts int64, self bool, splits ...domain.JournalSplit) {
	t.Helper()
	err := f.journal.InsertEntry(context.Background(), &domain.JournalEntry{
		ID:           id,
		EntityID:     "e1",
		WalletID:     walletID,
		Type:         typ,
		Timestamp:    ts,
		RawTxID:      "raw-" + id,
		SelfTransfer: self,
		Splits:       splits,
	})
	if err != nil {
		t.Fatalf("insert entry %s: %v", id, err)
	}
}

func split(accountID, symbol, qty, usd string) domain.JournalSplit {
	return domain.JournalSplit{
		AccountID: accountID,
		Symbol:    symbol,
		Quantity:  decimal.RequireFromString(qty),
		ValueUSD:  decimal.RequireFromString(usd),
	}
}

func TestMatch_FIFOAcrossLots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "100"),
		split(incomeETH, "ETH", "-10", "-100"))
	f.addEntry(t, "lot2", domain.EntryDeposit, "w1", 2000, false,
		split(assetETH, "ETH", "5", "60"),
		split(incomeETH, "ETH", "-5", "-60"))
	f.addEntry(t, "sale", domain.EntryWithdrawal, "w1", 3000, false,
		split(assetETH, "ETH", "-12", "-180"),
		split(incomeETH, "ETH", "12", "180"))

	res, err := f.engine(t, domain.GainsGlobalFIFO, decimal.Zero).Match(ctx, "e1")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.Scopes != 1 {
		t.Errorf("scopes: got %d, want 1", res.Scopes)
	}
	if len(res.ScopeErrors) != 0 {
		t.Fatalf("unexpected scope errors: %v", res.ScopeErrors)
	}
	if len(res.Events) != 2 {
		t.Fatalf("events: got %d, want 2", len(res.Events))
	}

	// First fragment drains lot1 entirely: 10 of 12 units.
	first := res.Events[0]
	if first.LotEntryID != "lot1" || !first.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("first fragment: lot=%s qty=%s", first.LotEntryID, first.Quantity)
	}
	if !first.CostBasisUSD.Equal(decimal.NewFromInt(100)) {
		t.Errorf("first basis: got %s, want 100", first.CostBasisUSD)
	}
	if !first.ProceedsUSD.Equal(decimal.NewFromInt(150)) {
		t.Errorf("first proceeds: got %s, want 150", first.ProceedsUSD)
	}
	if !first.GainUSD.Equal(decimal.NewFromInt(50)) {
		t.Errorf("first gain: got %s, want 50", first.GainUSD)
	}

	// Second fragment takes 2 of lot2's 5 units at proportional cost.
	second := res.Events[1]
	if second.LotEntryID != "lot2" || !second.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("second fragment: lot=%s qty=%s", second.LotEntryID, second.Quantity)
	}
	if !second.CostBasisUSD.Equal(decimal.NewFromInt(24)) {
		t.Errorf("second basis: got %s, want 24", second.CostBasisUSD)
	}
	if !second.GainUSD.Equal(decimal.NewFromInt(6)) {
		t.Errorf("second gain: got %s, want 6", second.GainUSD)
	}

	stored, err := f.events.GetByEntityID(ctx, "e1", domain.GainsGlobalFIFO)
	if err != nil {
		t.Fatalf("GetByEntityID failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("persisted events: got %d, want 2", len(stored))
	}
}

func TestMatch_ProtocolPositionsDoNotDisturbLots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "100"),
		split(incomeETH, "ETH", "-10", "-100"))
	// Supplying to a lending pool moves between asset accounts; the position
	// side is not a plain holding and must not open or consume lots.
	f.addEntry(t, "supply", domain.EntryDeposit, "w1", 2000, false,
		split(supplyETH, "ETH", "4", "40"),
		split(incomeETH, "ETH", "-4", "-40"))
	f.addEntry(t, "sale", domain.EntryWithdrawal, "w1", 3000, false,
		split(assetETH, "ETH", "-10", "-200"),
		split(incomeETH, "ETH", "10", "200"))

	res, err := f.engine(t, domain.GainsGlobalFIFO, decimal.Zero).Match(ctx, "e1")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(res.Events))
	}
	if res.Events[0].LotEntryID != "lot1" || !res.Events[0].GainUSD.Equal(decimal.NewFromInt(100)) {
		t.Errorf("event: %+v", res.Events[0])
	}
}

func TestMatch_OversellHaltsOnlyItsScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "100"),
		split(incomeETH, "ETH", "-10", "-100"))
	f.addEntry(t, "oversell", domain.EntryWithdrawal, "w1", 2000, false,
		split(assetETH, "ETH", "-20", "-400"),
		split(incomeETH, "ETH", "20", "400"))
	f.addEntry(t, "sollot", domain.EntryDeposit, "w1", 1000, false,
		split(assetSOL, "SOL", "8", "800"),
		split(incomeETH, "SOL", "-8", "-800"))
	f.addEntry(t, "solsale", domain.EntryWithdrawal, "w1", 2000, false,
		split(assetSOL, "SOL", "-8", "-1000"),
		split(incomeETH, "SOL", "8", "1000"))

	res, err := f.engine(t, domain.GainsGlobalFIFO, decimal.Zero).Match(ctx, "e1")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.ScopeErrors) != 1 {
		t.Fatalf("scope errors: got %d, want 1", len(res.ScopeErrors))
	}
	se := res.ScopeErrors[0]
	if se.Scope.Symbol != "ETH" {
		t.Errorf("halted scope: got %s", se.Scope.Symbol)
	}
	var balErr *faults.BalanceError
	if !errors.As(se.Err, &balErr) {
		t.Errorf("scope error type: %v", se.Err)
	}

	// The SOL scope still settles.
	if len(res.Events) != 1 || res.Events[0].Symbol != "SOL" {
		t.Fatalf("surviving events: %+v", res.Events)
	}
	if !res.Events[0].GainUSD.Equal(decimal.NewFromInt(200)) {
		t.Errorf("SOL gain: got %s, want 200", res.Events[0].GainUSD)
	}
}

func TestMatch_SelfTransferGlobalMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "100"),
		split(incomeETH, "ETH", "-10", "-100"))
	// Moving between own wallets in global mode never touches the pool.
	f.addEntry(t, "hop-out", domain.EntryTransfer, "w1", 2000, true,
		split(assetETH, "ETH", "-10", "-200"),
		split(incomeETH, "ETH", "10", "200"))
	f.addEntry(t, "hop-in", domain.EntryTransfer, "w2", 2000, true,
		split(assetETH, "ETH", "10", "200"),
		split(incomeETH, "ETH", "-10", "-200"))
	f.addEntry(t, "sale", domain.EntryWithdrawal, "w2", 3000, false,
		split(assetETH, "ETH", "-10", "-300"),
		split(incomeETH, "ETH", "10", "300"))

	res, err := f.engine(t, domain.GainsGlobalFIFO, decimal.Zero).Match(ctx, "e1")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.ScopeErrors) != 0 {
		t.Fatalf("scope errors: %v", res.ScopeErrors)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(res.Events))
	}
	// Basis carries from the original acquisition, not the transfer value.
	if !res.Events[0].CostBasisUSD.Equal(decimal.NewFromInt(100)) {
		t.Errorf("basis: got %s, want 100", res.Events[0].CostBasisUSD)
	}
	if !res.Events[0].GainUSD.Equal(decimal.NewFromInt(200)) {
		t.Errorf("gain: got %s, want 200", res.Events[0].GainUSD)
	}
}

func TestMatch_SelfTransferPerWalletMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "100"),
		split(incomeETH, "ETH", "-10", "-100"))
	f.addEntry(t, "hop-out", domain.EntryTransfer, "w1", 2000, true,
		split(assetETH, "ETH", "-10", "-200"),
		split(incomeETH, "ETH", "10", "200"))
	f.addEntry(t, "hop-in", domain.EntryTransfer, "w2", 2000, true,
		split(assetETH, "ETH", "10", "200"),
		split(incomeETH, "ETH", "-10", "-200"))
	f.addEntry(t, "sale", domain.EntryWithdrawal, "w2", 3000, false,
		split(assetETH, "ETH", "-10", "-250"),
		split(incomeETH, "ETH", "10", "250"))

	res, err := f.engine(t, domain.GainsPerWallet, decimal.Zero).Match(ctx, "e1")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.ScopeErrors) != 0 {
		t.Fatalf("scope errors: %v", res.ScopeErrors)
	}
	// The outbound hop consumes w1's lot silently; only the final sale
	// realizes, against the lot re-opened at transfer value.
	if len(res.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(res.Events))
	}
	ev := res.Events[0]
	if ev.WalletID != "w2" {
		t.Errorf("wallet scope: got %s, want w2", ev.WalletID)
	}
	if !ev.CostBasisUSD.Equal(decimal.NewFromInt(200)) {
		t.Errorf("basis: got %s, want 200", ev.CostBasisUSD)
	}
	if !ev.GainUSD.Equal(decimal.NewFromInt(50)) {
		t.Errorf("gain: got %s, want 50", ev.GainUSD)
	}
}

func TestMatch_ThresholdExemption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "10"),
		split(incomeETH, "ETH", "-10", "-10"))
	f.addEntry(t, "sale", domain.EntryWithdrawal, "w1", 2000, false,
		split(assetETH, "ETH", "-10", "-50"),
		split(incomeETH, "ETH", "10", "50"))

	res, err := f.engine(t, domain.GainsGlobalFIFO, decimal.NewFromInt(100)).Match(ctx, "e1")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(res.Events))
	}
	ev := res.Events[0]
	if ev.Exemption != domain.ExemptBelowThreshold {
		t.Errorf("exemption: got %q", ev.Exemption)
	}
	if !ev.GainUSD.IsZero() {
		t.Errorf("exempt gain must be zero, got %s", ev.GainUSD)
	}
	// Proceeds and basis stay reported for the record.
	if !ev.ProceedsUSD.Equal(decimal.NewFromInt(50)) || !ev.CostBasisUSD.Equal(decimal.NewFromInt(10)) {
		t.Errorf("proceeds/basis: %s / %s", ev.ProceedsUSD, ev.CostBasisUSD)
	}
}

func TestMatch_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "100"),
		split(incomeETH, "ETH", "-10", "-100"))
	f.addEntry(t, "sale", domain.EntrySwap, "w1", 2000, false,
		split(assetETH, "ETH", "-10", "-300"),
		split(incomeETH, "ETH", "10", "300"))

	eng := f.engine(t, domain.GainsGlobalFIFO, decimal.Zero)
	first, err := eng.Match(ctx, "e1")
	if err != nil {
		t.Fatalf("first Match failed: %v", err)
	}
	second, err := eng.Match(ctx, "e1")
	if err != nil {
		t.Fatalf("second Match failed: %v", err)
	}
	if len(first.Events) != 1 || len(second.Events) != 1 {
		t.Fatalf("event counts: %d, %d", len(first.Events), len(second.Events))
	}
	if first.Events[0].ID != second.Events[0].ID {
		t.Errorf("re-match changed event ID: %s vs %s", first.Events[0].ID, second.Events[0].ID)
	}

	stored, err := f.events.GetByEntityID(ctx, "e1", domain.GainsGlobalFIFO)
	if err != nil {
		t.Fatalf("GetByEntityID failed: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("persisted events after re-match: got %d, want 1", len(stored))
	}
}

func TestMatch_ModesAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addEntry(t, "lot1", domain.EntryDeposit, "w1", 1000, false,
		split(assetETH, "ETH", "10", "100"),
		split(incomeETH, "ETH", "-10", "-100"))
	f.addEntry(t, "sale", domain.EntrySwap, "w1", 2000, false,
		split(assetETH, "ETH", "-10", "-300"),
		split(incomeETH, "ETH", "10", "300"))

	if _, err := f.engine(t, domain.GainsGlobalFIFO, decimal.Zero).Match(ctx, "e1"); err != nil {
		t.Fatalf("global Match failed: %v", err)
	}
	if _, err := f.engine(t, domain.GainsPerWallet, decimal.Zero).Match(ctx, "e1"); err != nil {
		t.Fatalf("per-wallet Match failed: %v", err)
	}

	global, err := f.events.GetByEntityID(ctx, "e1", domain.GainsGlobalFIFO)
	if err != nil {
		t.Fatalf("global GetByEntityID failed: %v", err)
	}
	perWallet, err := f.events.GetByEntityID(ctx, "e1", domain.GainsPerWallet)
	if err != nil {
		t.Fatalf("per-wallet GetByEntityID failed: %v", err)
	}
	if len(global) != 1 || len(perWallet) != 1 {
		t.Errorf("stored per mode: global=%d perWallet=%d", len(global), len(perWallet))
	}
}
