package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

func testGainEvent(id, entityID string, ts int64, mode domain.GainsMode) *domain.RealizedGainEvent {
	return &domain.RealizedGainEvent{
		ID:              id,
		EntityID:        entityID,
		WalletID:        "wallet-1",
		Symbol:          "ETH",
		Timestamp:       ts,
		DisposalEntryID: "entry-sale",
		LotEntryID:      "entry-lot",
		Quantity:        decimal.RequireFromString("1.5"),
		ProceedsUSD:     decimal.RequireFromString("3000"),
		CostBasisUSD:    decimal.RequireFromString("2400"),
		GainUSD:         decimal.RequireFromString("600"),
		Mode:            mode,
		CreatedAt:       1700000000000,
	}
}

func TestGainEventStore_InsertBulkAndGetByEntityID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewGainEventStore(pool)

	g1 := testGainEvent("g1", "entity-1", 1000, domain.GainsGlobalFIFO)
	g1.Exemption = domain.ExemptBelowThreshold
	g2 := testGainEvent("g2", "entity-1", 2000, domain.GainsGlobalFIFO)

	require.NoError(t, store.InsertBulk(ctx, []*domain.RealizedGainEvent{g1, g2}))

	events, err := store.GetByEntityID(ctx, "entity-1", domain.GainsGlobalFIFO)
	require.NoError(t, err)
	require.Len(t, events, 2)

	got := events[0]
	assert.Equal(t, "g1", got.ID)
	assert.Equal(t, "wallet-1", got.WalletID)
	assert.Equal(t, "ETH", got.Symbol)
	assert.Equal(t, "entry-sale", got.DisposalEntryID)
	assert.Equal(t, "entry-lot", got.LotEntryID)
	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, got.ProceedsUSD.Equal(decimal.RequireFromString("3000")))
	assert.True(t, got.CostBasisUSD.Equal(decimal.RequireFromString("2400")))
	assert.True(t, got.GainUSD.Equal(decimal.RequireFromString("600")))
	assert.Equal(t, domain.ExemptBelowThreshold, got.Exemption)
	assert.Equal(t, domain.GainsGlobalFIFO, got.Mode)
	assert.Empty(t, events[1].Exemption)
}

func TestGainEventStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewGainEventStore(pool)

	g1 := testGainEvent("g1", "entity-1", 1000, domain.GainsGlobalFIFO)
	require.NoError(t, store.InsertBulk(ctx, []*domain.RealizedGainEvent{g1}))

	g2 := testGainEvent("g2", "entity-1", 2000, domain.GainsGlobalFIFO)
	dup := testGainEvent("g1", "entity-1", 3000, domain.GainsGlobalFIFO)
	err := store.InsertBulk(ctx, []*domain.RealizedGainEvent{g2, dup})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	events, err := store.GetByEntityID(ctx, "entity-1", domain.GainsGlobalFIFO)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGainEventStore_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewGainEventStore(pool)

	g3 := testGainEvent("g3", "entity-1", 1000, domain.GainsGlobalFIFO)
	g1 := testGainEvent("g1", "entity-1", 2000, domain.GainsGlobalFIFO)
	g2 := testGainEvent("g2", "entity-1", 2000, domain.GainsGlobalFIFO)
	require.NoError(t, store.InsertBulk(ctx, []*domain.RealizedGainEvent{g1, g2, g3}))

	events, err := store.GetByEntityID(ctx, "entity-1", domain.GainsGlobalFIFO)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "g3", events[0].ID)
	assert.Equal(t, "g1", events[1].ID)
	assert.Equal(t, "g2", events[2].ID)
}

func TestGainEventStore_ModeIsolation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewGainEventStore(pool)

	global := testGainEvent("g-global", "entity-1", 1000, domain.GainsGlobalFIFO)
	perWallet := testGainEvent("g-wallet", "entity-1", 1000, domain.GainsPerWallet)
	require.NoError(t, store.InsertBulk(ctx, []*domain.RealizedGainEvent{global, perWallet}))

	events, err := store.GetByEntityID(ctx, "entity-1", domain.GainsGlobalFIFO)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "g-global", events[0].ID)

	require.NoError(t, store.DeleteByEntityID(ctx, "entity-1", domain.GainsGlobalFIFO))

	events, err = store.GetByEntityID(ctx, "entity-1", domain.GainsGlobalFIFO)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = store.GetByEntityID(ctx, "entity-1", domain.GainsPerWallet)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "g-wallet", events[0].ID)
}
