package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"chainledger/internal/domain"
)

// WalletSummary aggregates the outcome of parsing one wallet's transactions.
type WalletSummary struct {
	WalletID string
	Total    int
	Parsed   int
	Ignored  int
	Errored  int
	Records  []*domain.ParseErrorRecord
	Warnings []string
}

// ParseWallet parses every transaction of a wallet in chronological order.
// A failure on one transaction is recorded and the run continues; only an
// infrastructure error aborts the wallet.
func (c *Controller) ParseWallet(ctx context.Context, w *domain.Wallet) (*WalletSummary, error) {
	txs, err := c.rawTxs.GetByWalletID(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("load transactions for wallet %s: %w", w.ID, err)
	}

	summary := &WalletSummary{WalletID: w.ID, Total: len(txs)}
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := c.ParseTransaction(ctx, w, tx)
		if err != nil {
			return nil, err
		}
		switch out.Status {
		case domain.TxStatusParsed:
			summary.Parsed++
		case domain.TxStatusIgnored:
			summary.Ignored++
		case domain.TxStatusError:
			summary.Errored++
			summary.Records = append(summary.Records, out.Record)
		}
		summary.Warnings = append(summary.Warnings, out.Warnings...)
	}

	c.logger.Printf("[lifecycle] wallet %s: %d parsed, %d ignored, %d errored of %d",
		w.ID, summary.Parsed, summary.Ignored, summary.Errored, summary.Total)
	return summary, nil
}

// ParseWallets parses a set of wallets, each chronologically, up to the
// configured number of wallets in parallel. Summaries are keyed by wallet ID.
func (c *Controller) ParseWallets(ctx context.Context, wallets []*domain.Wallet) (map[string]*WalletSummary, error) {
	type result struct {
		summary *WalletSummary
		err     error
	}

	sem := make(chan struct{}, c.concurrency)
	results := make([]result, len(wallets))
	var wg sync.WaitGroup
	for i, w := range wallets {
		wg.Add(1)
		go func(i int, w *domain.Wallet) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			s, err := c.ParseWallet(ctx, w)
			results[i] = result{summary: s, err: err}
		}(i, w)
	}
	wg.Wait()

	out := make(map[string]*WalletSummary, len(wallets))
	for i, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("parse wallet %s: %w", wallets[i].ID, r.err)
		}
		out[r.summary.WalletID] = r.summary
	}
	return out, nil
}
