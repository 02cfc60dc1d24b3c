// Package main provides the end-to-end ledger pipeline entry point.
// Executes: fixture ingest, wallet parsing, FIFO gains matching, reporting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
	"chainledger/internal/gains"
	"chainledger/internal/idhash"
	"chainledger/internal/ledger"
	"chainledger/internal/lifecycle"
	"chainledger/internal/parse"
	"chainledger/internal/pricing"
	"chainledger/internal/protocol"
	"chainledger/internal/reporting"
	"chainledger/internal/storage/memory"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "output", "Output directory for generated reports")
	modeFlag := flag.String("mode", string(domain.GainsGlobalFIFO), "Gains matching mode (GLOBAL_FIFO or PER_WALLET)")
	threshold := flag.String("threshold-usd", "0", "Exempt disposals whose proceeds fall below this USD value")
	vndRate := flag.String("vnd-rate", "25400", "USD to VND conversion rate")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags)
	if !*verbose {
		logger.SetOutput(os.Stderr)
	}

	mode, err := domain.ParseGainsMode(*modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --mode: %v\n", err)
		os.Exit(1)
	}
	thresholdUSD, err := decimal.NewFromString(*threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --threshold-usd: %v\n", err)
		os.Exit(1)
	}
	vndPerUSD, err := decimal.NewFromString(*vndRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --vnd-rate: %v\n", err)
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	// Create all memory stores
	stores := createMemoryStores()

	// Load fixture entity, wallets and transactions
	entity, wallets, err := loadFixtureData(ctx, stores)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Ledger Pipeline ===")
	fmt.Printf("Entity: %s (%d wallets), mode %s\n", entity.Name, len(wallets), mode)

	// Phase 1: parse all wallets into journal entries
	assembler, err := ledger.NewAssembler(ledger.AssemblerOptions{
		Accounts:  stores.accounts,
		Prices:    fixturePrices(),
		VNDRate:   pricing.FixedVNDRate{VNDPerUSD: vndPerUSD},
		Directory: ledger.NewStoreDirectory(stores.wallets),
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assembler error: %v\n", err)
		os.Exit(1)
	}

	registry, err := parse.NewDefaultRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registry error: %v\n", err)
		os.Exit(1)
	}
	controller, err := lifecycle.NewController(lifecycle.ControllerOptions{
		RawTxs:    stores.rawTxs,
		Journal:   stores.journal,
		Resolver:  protocol.NewResolver(protocol.NewRegistry()),
		Registry:  registry,
		Assembler: assembler,
		Sink:      faults.NewSink(stores.parseErrs),
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Controller error: %v\n", err)
		os.Exit(1)
	}

	summaries, err := controller.ParseWallets(ctx, wallets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Parse completed:")
	for _, w := range wallets {
		s := summaries[w.ID]
		fmt.Printf("  %-12s total=%d parsed=%d ignored=%d errored=%d\n",
			w.Label, s.Total, s.Parsed, s.Ignored, s.Errored)
	}

	// Per-transaction verification rows. Re-parsing supersedes in place, so
	// outcomes can be collected without disturbing the journal.
	var parseResults []reporting.ParseTestResult
	for _, w := range wallets {
		txs, err := stores.rawTxs.GetByWalletID(ctx, w.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading transactions for %s: %v\n", w.Label, err)
			os.Exit(1)
		}
		for _, tx := range txs {
			out, err := controller.ParseTransaction(ctx, w, tx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error verifying %s: %v\n", tx.Hash, err)
				os.Exit(1)
			}
			parseResults = append(parseResults, reporting.NewParseTestResult(tx, out))
		}
	}

	// Phase 2: FIFO gains matching
	engine, err := gains.NewEngine(gains.Options{
		Journal:      stores.journal,
		Accounts:     stores.accounts,
		Events:       stores.gainEvents,
		Sink:         faults.NewSink(stores.parseErrs),
		Mode:         mode,
		ThresholdUSD: thresholdUSD,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gains engine error: %v\n", err)
		os.Exit(1)
	}

	match, err := engine.Match(ctx, entity.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Matching error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Matching completed: %d events across %d scopes, %d scope failures\n",
		len(match.Events), match.Scopes, len(match.ScopeErrors))

	// Phase 3: render reports
	var halted []string
	for _, se := range match.ScopeErrors {
		halted = append(halted, se.Scope.String())
	}
	sort.Strings(halted)

	generator := reporting.NewGenerator(stores.wallets, stores.rawTxs, stores.parseErrs, stores.gainEvents)
	report, err := generator.Generate(ctx, entity.ID, mode, reporting.Period{}, halted)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Report error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	mdPath := filepath.Join(*outputDir, "report.md")
	csvPath := filepath.Join(*outputDir, "gains.csv")
	parsePath := filepath.Join(*outputDir, "parse_results.csv")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", mdPath, err)
		os.Exit(1)
	}
	if err := os.WriteFile(csvPath, []byte(reporting.RenderGainsCSV(report.Events)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", csvPath, err)
		os.Exit(1)
	}
	if err := os.WriteFile(parsePath, []byte(reporting.RenderParseResultsCSV(parseResults)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", parsePath, err)
		os.Exit(1)
	}

	fmt.Printf("Reports written:\n  %s\n  %s\n  %s\n", mdPath, csvPath, parsePath)
	fmt.Printf("Realized gain: %s USD over %d events\n",
		report.Gains.TotalGain.StringFixed(2), report.Gains.EventCount)
	fmt.Println("=== Pipeline Complete ===")
}

// memoryStores bundles the in-memory storage backends used by the pipeline.
type memoryStores struct {
	entities   *memory.EntityStore
	wallets    *memory.WalletStore
	rawTxs     *memory.RawTransactionStore
	accounts   *memory.AccountStore
	journal    *memory.JournalStore
	parseErrs  *memory.ParseErrorStore
	gainEvents *memory.GainEventStore
}

func createMemoryStores() *memoryStores {
	return &memoryStores{
		entities:   memory.NewEntityStore(),
		wallets:    memory.NewWalletStore(),
		rawTxs:     memory.NewRawTransactionStore(),
		accounts:   memory.NewAccountStore(),
		journal:    memory.NewJournalStore(),
		parseErrs:  memory.NewParseErrorStore(),
		gainEvents: memory.NewGainEventStore(),
	}
}

// fixturePrices returns a static price table for the fixture symbols.
// Stablecoins resolve to 1 without a table entry.
func fixturePrices() *pricing.StaticResolver {
	return &pricing.StaticResolver{Prices: map[string]decimal.Decimal{
		"ETH":   decimal.NewFromInt(2000),
		"SOL":   decimal.NewFromInt(150),
		"stETH": decimal.NewFromInt(1995),
	}}
}

// loadFixtureData seeds one entity with two wallets and a small transaction
// history exercising transfers, a swap, a lending deposit and gas fees.
func loadFixtureData(ctx context.Context, stores *memoryStores) (*domain.Entity, []*domain.Wallet, error) {
	now := time.Now().UnixMilli()
	base := now - 30*24*time.Hour.Milliseconds()

	entity := &domain.Entity{ID: "entity-demo", Name: "Demo Entity", CreatedAt: now}
	if err := stores.entities.Insert(ctx, entity); err != nil {
		return nil, nil, fmt.Errorf("insert entity: %w", err)
	}

	ethWallet := &domain.Wallet{
		ID:        "wallet-eth-main",
		EntityID:  entity.ID,
		Chain:     domain.ChainEthereum,
		Address:   "0x1111111111111111111111111111111111111111",
		Label:     "eth-main",
		CreatedAt: now,
	}
	solWallet := &domain.Wallet{
		ID:        "wallet-sol-main",
		EntityID:  entity.ID,
		Chain:     domain.ChainSolana,
		Address:   "7nYabs9dUhvxYwdTnrWVBL9MYviKSfrEbdWCUbcnwkpF",
		Label:     "sol-main",
		CreatedAt: now,
	}
	wallets := []*domain.Wallet{ethWallet, solWallet}
	for _, w := range wallets {
		if err := stores.wallets.Insert(ctx, w); err != nil {
			return nil, nil, fmt.Errorf("insert wallet %s: %w", w.Label, err)
		}
	}

	usdcAddr := "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	external := "0x9999999999999999999999999999999999999999"

	txs := []*domain.RawTransaction{
		// Funding: 10 ETH arrives from an external address.
		{
			WalletID:    ethWallet.ID,
			Chain:       domain.ChainEthereum,
			Hash:        "0xf001",
			BlockNumber: 19_000_001,
			Timestamp:   base,
			From:        external,
			To:          ethWallet.Address,
			Value:       decimal.NewFromInt(10),
		},
		// Swap 2 ETH for 4000 USDC on Uniswap V2.
		{
			WalletID:    ethWallet.ID,
			Chain:       domain.ChainEthereum,
			Hash:        "0xf002",
			BlockNumber: 19_000_200,
			Timestamp:   base + 3_600_000,
			From:        ethWallet.Address,
			To:          protocol.UniswapV2Router,
			Value:       decimal.NewFromInt(2),
			GasUsed:     decimal.RequireFromString("0.004"),
			Decoded: &domain.DecodedCall{
				Method:   "swapExactETHForTokens(uint256,address[],address,uint256)",
				Selector: "0x7ff36ab5",
				Events: []domain.EventLog{{
					Address: usdcAddr,
					Name:    "Transfer",
					Params: map[string]string{
						"from":  protocol.UniswapV2Router,
						"to":    ethWallet.Address,
						"value": "4000",
					},
				}},
				TokenSyms: map[string]string{usdcAddr: "USDC"},
			},
		},
		// Deposit 3000 USDC into Aave V2.
		{
			WalletID:    ethWallet.ID,
			Chain:       domain.ChainEthereum,
			Hash:        "0xf003",
			BlockNumber: 19_000_400,
			Timestamp:   base + 7_200_000,
			From:        ethWallet.Address,
			To:          protocol.AaveV2LendingPool,
			GasUsed:     decimal.RequireFromString("0.003"),
			Decoded: &domain.DecodedCall{
				Method:   "deposit(address,uint256,address,uint16)",
				Selector: "0xe8eda9df",
				Args: map[string]string{
					"asset":  usdcAddr,
					"amount": "3000",
				},
				TokenSyms: map[string]string{usdcAddr: "USDC"},
			},
		},
		// Send 1 ETH to an external address, a taxable disposal.
		{
			WalletID:    ethWallet.ID,
			Chain:       domain.ChainEthereum,
			Hash:        "0xf004",
			BlockNumber: 19_000_600,
			Timestamp:   base + 10_800_000,
			From:        ethWallet.Address,
			To:          external,
			Value:       decimal.NewFromInt(1),
			GasUsed:     decimal.RequireFromString("0.001"),
		},
		// Receive 20 SOL via an SPL token transfer.
		{
			WalletID:    solWallet.ID,
			Chain:       domain.ChainSolana,
			Hash:        "5sig001",
			BlockNumber: 250_000_001,
			Timestamp:   base + 1_800_000,
			From:        "9extErnaLSoLAddress11111111111111111111111",
			To:          protocol.SPLTokenProgram,
			Decoded: &domain.DecodedCall{
				Method: "transferChecked",
				Args: map[string]string{
					"mint":             "So11111111111111111111111111111111111111112",
					"amount":           "20",
					"authority":        "9extErnaLSoLAddress11111111111111111111111",
					"destinationOwner": solWallet.Address,
				},
				TokenSyms: map[string]string{
					"So11111111111111111111111111111111111111112": "SOL",
				},
			},
		},
	}

	for _, tx := range txs {
		tx.ID = idhash.ComputeRawTxID(tx.Chain, tx.Hash, tx.WalletID, tx.BlockNumber)
		tx.Status = domain.TxStatusLoaded
		tx.CreatedAt = now
		if err := stores.rawTxs.Insert(ctx, tx); err != nil {
			return nil, nil, fmt.Errorf("insert transaction %s: %w", tx.Hash, err)
		}
	}

	return entity, wallets, nil
}
