// Package main provides the standalone ingest tool. It feeds raw
// transactions into storage from either a live WebSocket feed or a JSON
// replay file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chainledger/internal/ingest"
	"chainledger/internal/observability"
	"chainledger/internal/storage"
	"chainledger/internal/storage/memory"
	"chainledger/internal/storage/migrations"
	pgstore "chainledger/internal/storage/postgres"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "live", "Ingest mode: live or replay")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("LEDGER_WS_ENDPOINT"), "WebSocket transaction feed endpoint (live mode)")
	inputFile := flag.String("input", "", "JSON transaction file (replay mode)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	entityID := flag.String("entity-id", os.Getenv("LEDGER_ENTITY_ID"), "Entity whose wallets are subscribed (live mode)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	switch *mode {
	case "live":
		if *wsEndpoint == "" {
			logger.Fatal("--ws-endpoint is required in live mode")
		}
		if *entityID == "" {
			logger.Fatal("--entity-id is required in live mode")
		}
	case "replay":
		if *inputFile == "" {
			logger.Fatal("--input is required in replay mode")
		}
	default:
		logger.Fatalf("Unknown --mode %q (want live or replay)", *mode)
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Optional metrics endpoint
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create stores
	var rawTxs storage.RawTransactionStore
	var wallets storage.WalletStore
	if *useMemory {
		rawTxs = memory.NewRawTransactionStore()
		wallets = memory.NewWalletStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN, nil)
		if err != nil {
			logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		rawTxs = pgstore.NewRawTransactionStore(pool)
		wallets = pgstore.NewWalletStore(pool)
	}

	// Build the source
	var source ingest.Source
	switch *mode {
	case "live":
		list, err := wallets.GetByEntityID(ctx, *entityID)
		if err != nil {
			logger.Fatalf("Failed to load wallets: %v", err)
		}
		if len(list) == 0 {
			logger.Fatalf("Entity %s has no wallets", *entityID)
		}
		addresses := make([]string, 0, len(list))
		for _, w := range list {
			addresses = append(addresses, w.Address)
		}
		logger.Printf("Subscribing to %d wallet addresses", len(addresses))
		source = ingest.NewWSSource(*wsEndpoint, addresses, nil, logger)
	case "replay":
		logger.Printf("Replaying transactions from %s", *inputFile)
		source = ingest.NewFileSource(*inputFile, logger)
	}

	// Run
	runner := ingest.NewRunner(source, rawTxs, logger)
	stats, err := runner.Run(ctx)
	if err != nil && err != context.Canceled {
		logger.Fatalf("Ingest error: %v", err)
	}
	if stats != nil {
		fmt.Printf("Ingest finished: received=%d stored=%d duplicates=%d failed=%d\n",
			stats.Received, stats.Stored, stats.Duplicates, stats.Failed)
	}
}
