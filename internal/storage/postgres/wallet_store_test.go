package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

func TestEntityStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEntityStore(pool)

	entity := &domain.Entity{ID: "e1", Name: "household", CreatedAt: 1700000000000}
	require.NoError(t, store.Insert(ctx, entity))

	got, err := store.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, entity.Name, got.Name)
	assert.Equal(t, entity.CreatedAt, got.CreatedAt)

	err = store.Insert(ctx, entity)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "e-absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntityStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	createTestEntity(t, ctx, pool, "e2")
	createTestEntity(t, ctx, pool, "e1")

	got, err := NewEntityStore(pool).List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)
}

func TestWalletStore_InsertAndGetByAddress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entityID := createTestEntity(t, ctx, pool, "e1")

	store := NewWalletStore(pool)
	wallet := &domain.Wallet{
		ID:        "w1",
		EntityID:  entityID,
		Chain:     domain.ChainEthereum,
		Address:   "0xAbCd111111111111111111111111111111111111",
		Label:     "main",
		CreatedAt: 1700000000000,
	}
	require.NoError(t, store.Insert(ctx, wallet))

	// Addresses are stored normalized; any casing resolves.
	got, err := store.GetByAddress(ctx, domain.ChainEthereum, "0xABCD111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.ID)
	assert.Equal(t, "0xabcd111111111111111111111111111111111111", got.Address)
	assert.Equal(t, "main", got.Label)

	_, err = store.GetByAddress(ctx, domain.ChainPolygon, wallet.Address)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWalletStore_DuplicateAddress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entityID := createTestEntity(t, ctx, pool, "e1")
	createTestWallet(t, ctx, pool, entityID, "w1", "0x1111111111111111111111111111111111111111")

	// Same address in a different casing still collides.
	err := NewWalletStore(pool).Insert(ctx, &domain.Wallet{
		ID:        "w2",
		EntityID:  entityID,
		Chain:     domain.ChainEthereum,
		Address:   "0x1111111111111111111111111111111111111111",
		CreatedAt: 1700000000000,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestWalletStore_GetByEntityID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entityID := createTestEntity(t, ctx, pool, "e1")
	otherEntity := createTestEntity(t, ctx, pool, "e2")
	createTestWallet(t, ctx, pool, entityID, "w2", "0x2222222222222222222222222222222222222222")
	createTestWallet(t, ctx, pool, entityID, "w1", "0x1111111111111111111111111111111111111111")
	createTestWallet(t, ctx, pool, otherEntity, "w3", "0x3333333333333333333333333333333333333333")

	got, err := NewWalletStore(pool).GetByEntityID(ctx, entityID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "w1", got[0].ID)
	assert.Equal(t, "w2", got[1].ID)
}
