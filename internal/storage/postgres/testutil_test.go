package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"chainledger/internal/domain"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn, nil)
	require.NoError(t, err, "failed to create pool")

	runTestMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runTestMigrations applies the SQL files from internal/storage/migrations/postgres
// directly; the migrations package cannot be imported from here.
func runTestMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	projectRoot := findProjectRoot(t)
	migrationsDir := filepath.Join(projectRoot, "internal", "storage", "migrations", "postgres")

	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err, "failed to read migrations directory")

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, file))
		require.NoError(t, err, "failed to read migration file: %s", file)

		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "failed to execute migration: %s", file)
	}
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createTestEntity inserts a test entity and returns its ID.
func createTestEntity(t *testing.T, ctx context.Context, pool *Pool, id string) string {
	t.Helper()

	err := NewEntityStore(pool).Insert(ctx, &domain.Entity{
		ID:        id,
		Name:      "entity " + id,
		CreatedAt: 1700000000000,
	})
	require.NoError(t, err)
	return id
}

// createTestWallet inserts a wallet under the given entity and returns its ID.
func createTestWallet(t *testing.T, ctx context.Context, pool *Pool, entityID, id, address string) string {
	t.Helper()

	err := NewWalletStore(pool).Insert(ctx, &domain.Wallet{
		ID:        id,
		EntityID:  entityID,
		Chain:     domain.ChainEthereum,
		Address:   address,
		CreatedAt: 1700000000000,
	})
	require.NoError(t, err)
	return id
}

// createTestRawTx inserts a raw transaction and returns its ID.
func createTestRawTx(t *testing.T, ctx context.Context, pool *Pool, walletID, id string, ts int64) string {
	t.Helper()

	err := NewRawTransactionStore(pool).Insert(ctx, &domain.RawTransaction{
		ID:        id,
		WalletID:  walletID,
		Chain:     domain.ChainEthereum,
		Hash:      "0xh" + id,
		Timestamp: ts,
		Value:     decimal.NewFromInt(1),
		GasUsed:   decimal.Zero,
		Status:    domain.TxStatusLoaded,
		CreatedAt: 1700000000000,
	})
	require.NoError(t, err)
	return id
}

// createTestAccount inserts an account and returns its ID.
func createTestAccount(t *testing.T, ctx context.Context, pool *Pool, entityID, id, label string, typ domain.AccountType) string {
	t.Helper()

	err := NewAccountStore(pool).Insert(ctx, &domain.Account{
		ID:        id,
		EntityID:  entityID,
		Label:     label,
		Type:      typ,
		Symbol:    "ETH",
		CreatedAt: 1700000000000,
	})
	require.NoError(t, err)
	return id
}
