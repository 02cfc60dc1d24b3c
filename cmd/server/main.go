// Package main provides the unified ledger server:
// - Ingest (continuous): WebSocket transaction feed into raw storage
// - Parse (scheduled): raw transactions into journal entries
// - Match (scheduled): FIFO gains matching plus report generation
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
	"chainledger/internal/gains"
	"chainledger/internal/ingest"
	"chainledger/internal/ledger"
	"chainledger/internal/lifecycle"
	"chainledger/internal/observability"
	"chainledger/internal/parse"
	"chainledger/internal/pricing"
	"chainledger/internal/protocol"
	"chainledger/internal/reporting"
	"chainledger/internal/storage"
	chstore "chainledger/internal/storage/clickhouse"
	"chainledger/internal/storage/memory"
	"chainledger/internal/storage/migrations"
	pgstore "chainledger/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	entityID      string
	mode          domain.GainsMode
	thresholdUSD  decimal.Decimal
	outputDir     string
	parseInterval time.Duration
	matchInterval time.Duration

	// Stores
	stores *allStores

	// Components
	controller *lifecycle.Controller
	engine     *gains.Engine
	generator  *reporting.Generator
	wsEndpoint string
	logger     *log.Logger

	// State
	mu           sync.Mutex
	started      time.Time
	lastParseRun time.Time
	lastMatchRun time.Time
	parseRuns    int
	matchRuns    int
	lastHalted   []string
}

// allStores holds all storage implementations.
type allStores struct {
	entityStore    storage.EntityStore
	walletStore    storage.WalletStore
	rawTxStore     storage.RawTransactionStore
	accountStore   storage.AccountStore
	journalStore   storage.JournalStore
	parseErrStore  storage.ParseErrorStore
	gainEventStore storage.GainEventStore
	priceStore     storage.PriceTimeseriesStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("LEDGER_WS_ENDPOINT"), "WebSocket transaction feed endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	entityID := flag.String("entity-id", os.Getenv("LEDGER_ENTITY_ID"), "Entity whose wallets are processed")
	modeFlag := flag.String("mode", envOr("LEDGER_GAINS_MODE", string(domain.GainsGlobalFIFO)), "Gains matching mode (GLOBAL_FIFO or PER_WALLET)")
	threshold := flag.String("threshold-usd", envOr("LEDGER_THRESHOLD_USD", "0"), "Exempt disposals with proceeds below this USD value")
	vndRate := flag.String("vnd-rate", envOr("LEDGER_VND_RATE", "25400"), "USD to VND conversion rate")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	parseInterval := flag.Duration("parse-interval", 15*time.Minute, "Wallet parsing interval")
	matchInterval := flag.Duration("match-interval", 1*time.Hour, "Gains matching and report interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *entityID == "" {
		logger.Fatal("--entity-id is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	mode, err := domain.ParseGainsMode(*modeFlag)
	if err != nil {
		logger.Fatalf("Invalid --mode: %v", err)
	}
	thresholdUSD, err := decimal.NewFromString(*threshold)
	if err != nil {
		logger.Fatalf("Invalid --threshold-usd: %v", err)
	}
	vndPerUSD, err := decimal.NewFromString(*vndRate)
	if err != nil {
		logger.Fatalf("Invalid --vnd-rate: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Wire components
	priceResolver := pricing.NewStoreResolver(stores.priceStore, pricing.DefaultLookback())
	priceResolver.Hit = observability.RecordPriceCacheHit
	priceResolver.Miss = observability.RecordPriceCacheMiss
	assembler, err := ledger.NewAssembler(ledger.AssemblerOptions{
		Accounts:  stores.accountStore,
		Prices:    priceResolver,
		VNDRate:   pricing.FixedVNDRate{VNDPerUSD: vndPerUSD},
		Directory: ledger.NewStoreDirectory(stores.walletStore),
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create assembler: %v", err)
	}
	registry, err := parse.NewDefaultRegistry()
	if err != nil {
		logger.Fatalf("Failed to build parser registry: %v", err)
	}
	controller, err := lifecycle.NewController(lifecycle.ControllerOptions{
		RawTxs:    stores.rawTxStore,
		Journal:   stores.journalStore,
		Resolver:  protocol.NewResolver(protocol.NewRegistry()),
		Registry:  registry,
		Assembler: assembler,
		Sink:      faults.NewSink(stores.parseErrStore),
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create controller: %v", err)
	}
	engine, err := gains.NewEngine(gains.Options{
		Journal:      stores.journalStore,
		Accounts:     stores.accountStore,
		Events:       stores.gainEventStore,
		Sink:         faults.NewSink(stores.parseErrStore),
		Mode:         mode,
		ThresholdUSD: thresholdUSD,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create gains engine: %v", err)
	}

	server := &Server{
		entityID:      *entityID,
		mode:          mode,
		thresholdUSD:  thresholdUSD,
		outputDir:     *outputDir,
		parseInterval: *parseInterval,
		matchInterval: *matchInterval,
		stores:        stores,
		controller:    controller,
		engine:        engine,
		generator:     reporting.NewGenerator(stores.walletStore, stores.rawTxStore, stores.parseErrStore, stores.gainEventStore),
		wsEndpoint:    *wsEndpoint,
		logger:        logger,
		started:       time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			entityStore:    memory.NewEntityStore(),
			walletStore:    memory.NewWalletStore(),
			rawTxStore:     memory.NewRawTransactionStore(),
			accountStore:   memory.NewAccountStore(),
			journalStore:   memory.NewJournalStore(),
			parseErrStore:  memory.NewParseErrorStore(),
			gainEventStore: memory.NewGainEventStore(),
			priceStore:     memory.NewPriceTimeseriesStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		entityStore:    pgstore.NewEntityStore(pool),
		walletStore:    pgstore.NewWalletStore(pool),
		rawTxStore:     pgstore.NewRawTransactionStore(pool),
		accountStore:   pgstore.NewAccountStore(pool),
		journalStore:   pgstore.NewJournalStore(pool),
		parseErrStore:  pgstore.NewParseErrorStore(pool),
		gainEventStore: pgstore.NewGainEventStore(pool),
		priceStore:     chstore.NewPriceTimeseriesStore(chConn),
	}
	cleanup := func() {
		pool.Close()
		chConn.Close()
	}
	return stores, cleanup, nil
}

// Run starts ingest and the two schedulers, blocking until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	errCh := make(chan error, 3)

	// Start ingest in background when a feed endpoint is configured
	if s.wsEndpoint != "" {
		go func() {
			err := s.runIngest(ctx)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("ingest: %w", err)
			}
		}()
	} else {
		s.logger.Println("No --ws-endpoint configured, ingest disabled")
	}

	// Start parse scheduler in background
	go func() {
		err := s.runParseScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("parse scheduler: %w", err)
		}
	}()

	// Start match scheduler in background
	go func() {
		err := s.runMatchScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("match scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runIngest subscribes to the transaction feed for every wallet of the
// entity and stores whatever arrives.
func (s *Server) runIngest(ctx context.Context) error {
	wallets, err := s.stores.walletStore.GetByEntityID(ctx, s.entityID)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	addresses := make([]string, 0, len(wallets))
	for _, w := range wallets {
		addresses = append(addresses, w.Address)
	}
	s.logger.Printf("Ingest subscribing to %d wallet addresses", len(addresses))

	source := ingest.NewWSSource(s.wsEndpoint, addresses, nil, s.logger)
	runner := ingest.NewRunner(source, s.stores.rawTxStore, s.logger)
	_, err = runner.Run(ctx)
	return err
}

// runParseScheduler re-parses all wallets on a fixed interval. The first run
// fires immediately.
func (s *Server) runParseScheduler(ctx context.Context) error {
	ticker := time.NewTicker(s.parseInterval)
	defer ticker.Stop()

	for {
		if err := s.runParse(ctx); err != nil {
			if err == context.Canceled {
				return err
			}
			s.logger.Printf("Parse run failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) runParse(ctx context.Context) error {
	wallets, err := s.stores.walletStore.GetByEntityID(ctx, s.entityID)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	start := time.Now()
	summaries, err := s.controller.ParseWallets(ctx, wallets)
	if err != nil {
		return err
	}

	var total, parsed, ignored, errored int
	for _, sum := range summaries {
		total += sum.Total
		parsed += sum.Parsed
		ignored += sum.Ignored
		errored += sum.Errored
	}
	s.logger.Printf("Parse run: %d wallets, %d transactions (%d parsed, %d ignored, %d errored) in %s",
		len(wallets), total, parsed, ignored, errored, time.Since(start).Round(time.Millisecond))

	s.mu.Lock()
	s.lastParseRun = time.Now()
	s.parseRuns++
	s.mu.Unlock()
	return nil
}

// runMatchScheduler runs gains matching plus report generation on a fixed
// interval. The first run fires immediately.
func (s *Server) runMatchScheduler(ctx context.Context) error {
	ticker := time.NewTicker(s.matchInterval)
	defer ticker.Stop()

	for {
		if err := s.runMatch(ctx); err != nil {
			if err == context.Canceled {
				return err
			}
			s.logger.Printf("Match run failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) runMatch(ctx context.Context) error {
	start := time.Now()
	match, err := s.engine.Match(ctx, s.entityID)
	if err != nil {
		return err
	}

	halted := make([]string, 0, len(match.ScopeErrors))
	for _, se := range match.ScopeErrors {
		halted = append(halted, se.Scope.String())
	}
	sort.Strings(halted)
	observability.RecordMatchRun(len(match.Events), match.Scopes, len(match.ScopeErrors), time.Since(start).Seconds())

	report, err := s.generator.Generate(ctx, s.entityID, s.mode, reporting.Period{}, halted)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	mdPath := filepath.Join(s.outputDir, "report.md")
	csvPath := filepath.Join(s.outputDir, "gains.csv")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	if err := os.WriteFile(csvPath, []byte(reporting.RenderGainsCSV(report.Events)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	s.logger.Printf("Match run: %d events, %d scopes, %d halted, gain %s USD, reports in %s",
		len(match.Events), match.Scopes, len(halted), report.Gains.TotalGain.StringFixed(2), s.outputDir)

	s.mu.Lock()
	s.lastMatchRun = time.Now()
	s.matchRuns++
	s.lastHalted = halted
	s.mu.Unlock()
	return nil
}

// startHTTPServer serves health, metrics and status endpoints.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	EntityID     string    `json:"entity_id"`
	Mode         string    `json:"mode"`
	Uptime       string    `json:"uptime"`
	LastParseRun time.Time `json:"last_parse_run,omitempty"`
	LastMatchRun time.Time `json:"last_match_run,omitempty"`
	ParseRuns    int       `json:"parse_runs"`
	MatchRuns    int       `json:"match_runs"`
	HaltedScopes []string  `json:"halted_scopes,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		EntityID:     s.entityID,
		Mode:         s.mode.String(),
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		LastParseRun: s.lastParseRun,
		LastMatchRun: s.lastMatchRun,
		ParseRuns:    s.parseRuns,
		MatchRuns:    s.matchRuns,
		HaltedScopes: s.lastHalted,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Printf("Status encode error: %v", err)
	}
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from a .env file if it exists.
// System environment variables take precedence.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
