// Package main generates a ledger report on demand from stored journal
// state: a Markdown summary plus a gains CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"chainledger/internal/domain"
	"chainledger/internal/reporting"
	"chainledger/internal/storage/migrations"
	pgstore "chainledger/internal/storage/postgres"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	entityID := flag.String("entity-id", os.Getenv("LEDGER_ENTITY_ID"), "Entity to report on")
	modeFlag := flag.String("mode", string(domain.GainsGlobalFIFO), "Gains mode the events were matched in")
	startMs := flag.Int64("start-ms", 0, "Report period start, unix ms inclusive (0 for unbounded)")
	endMs := flag.Int64("end-ms", 0, "Report period end, unix ms inclusive (0 for unbounded)")
	flag.Parse()

	ctx := context.Background()

	// Validate flags
	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required")
		os.Exit(1)
	}
	if *entityID == "" {
		fmt.Fprintln(os.Stderr, "Error: --entity-id is required")
		os.Exit(1)
	}
	mode, err := domain.ParseGainsMode(*modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --mode: %v\n", err)
		os.Exit(1)
	}

	// Connect and migrate
	pool, err := pgstore.NewPool(ctx, *postgresDSN, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
		os.Exit(1)
	}

	generator := reporting.NewGenerator(
		pgstore.NewWalletStore(pool),
		pgstore.NewRawTransactionStore(pool),
		pgstore.NewParseErrorStore(pool),
		pgstore.NewGainEventStore(pool),
	)

	period := reporting.Period{StartMs: *startMs, EndMs: *endMs}
	report, err := generator.Generate(ctx, *entityID, mode, period, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	mdPath := filepath.Join(*outputDir, "report.md")
	csvPath := filepath.Join(*outputDir, "gains.csv")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", mdPath, err)
		os.Exit(1)
	}
	if err := os.WriteFile(csvPath, []byte(reporting.RenderGainsCSV(report.Events)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", csvPath, err)
		os.Exit(1)
	}

	fmt.Printf("Report for %s (%s):\n", *entityID, mode)
	fmt.Printf("  Wallets: %d\n", len(report.Wallets))
	fmt.Printf("  Gain events: %d (%d exempt)\n", report.Gains.EventCount, report.Gains.ExemptCount)
	fmt.Printf("  Realized gain: %s USD\n", report.Gains.TotalGain.StringFixed(2))
	fmt.Printf("Written:\n  %s\n  %s\n", mdPath, csvPath)
}
