package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"chainledger/internal/observability"
	"chainledger/internal/storage"
)

// RunnerStats counts one ingestion run.
type RunnerStats struct {
	Received   int
	Stored     int
	Duplicates int
	Failed     int
}

// Runner drains a source into the raw transaction store. Duplicate
// transactions are skipped; the deterministic ID makes replays harmless.
type Runner struct {
	source Source
	store  storage.RawTransactionStore
	logger *log.Logger
}

// NewRunner creates a Runner.
func NewRunner(source Source, store storage.RawTransactionStore, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{source: source, store: store, logger: logger}
}

// Run consumes the source until it closes or the context ends.
func (r *Runner) Run(ctx context.Context) (*RunnerStats, error) {
	stream, err := r.source.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	stats := &RunnerStats{}
	for tx := range stream {
		stats.Received++
		err := r.store.Insert(ctx, tx)
		switch {
		case err == nil:
			stats.Stored++
			observability.DefaultMetrics.TransactionsIngested.Inc()
		case errors.Is(err, storage.ErrDuplicateKey):
			stats.Duplicates++
		default:
			stats.Failed++
			observability.DefaultMetrics.IngestErrors.Inc()
			r.logger.Printf("[ingest] store tx %s failed: %v", tx.Hash, err)
		}
	}

	r.logger.Printf("[ingest] run finished: %d received, %d stored, %d duplicates, %d failed",
		stats.Received, stats.Stored, stats.Duplicates, stats.Failed)
	return stats, ctx.Err()
}
