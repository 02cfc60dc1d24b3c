package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	wallets    storage.WalletStore
	rawTxs     storage.RawTransactionStore
	parseErrs  storage.ParseErrorStore
	gainEvents storage.GainEventStore
	now        func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	wallets storage.WalletStore,
	rawTxs storage.RawTransactionStore,
	parseErrs storage.ParseErrorStore,
	gainEvents storage.GainEventStore,
) *Generator {
	return &Generator{
		wallets:    wallets,
		rawTxs:     rawTxs,
		parseErrs:  parseErrs,
		gainEvents: gainEvents,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for an entity in the given mode, bounded to
// the requested period. scopeFailures carries the halted scopes of the
// latest matching run.
func (g *Generator) Generate(ctx context.Context, entityID string, mode domain.GainsMode, period Period, scopeFailures []string) (*Report, error) {
	wallets, err := g.wallets.GetByEntityID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Request: ReportRequest{
			ID:          uuid.NewString(),
			EntityID:    entityID,
			Mode:        mode,
			Period:      period,
			RequestedAt: g.now().UnixMilli(),
		},
	}

	for _, w := range wallets {
		summary, err := g.walletSummary(ctx, w, period)
		if err != nil {
			return nil, err
		}
		report.Wallets = append(report.Wallets, *summary)
	}

	events, err := g.gainEvents.GetByEntityID(ctx, entityID, mode)
	if err != nil {
		return nil, fmt.Errorf("load gain events: %w", err)
	}
	for _, ev := range events {
		if period.Contains(ev.Timestamp) {
			report.Events = append(report.Events, ev)
		}
	}
	report.Gains = summarizeGains(mode, report.Events, scopeFailures)
	return report, nil
}

func (g *Generator) walletSummary(ctx context.Context, w *domain.Wallet, period Period) (*WalletParseSummary, error) {
	txs, err := g.rawTxs.GetByWalletID(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("load transactions for wallet %s: %w", w.ID, err)
	}

	summary := &WalletParseSummary{
		WalletID: w.ID,
		Label:    w.Label,
		Chain:    w.Chain,
	}
	for _, tx := range txs {
		if !period.Contains(tx.Timestamp) {
			continue
		}
		summary.Stats.Total++
		switch tx.Status {
		case domain.TxStatusParsed:
			summary.Stats.Parsed++
		case domain.TxStatusIgnored:
			summary.Stats.Ignored++
		case domain.TxStatusError:
			summary.Stats.Errored++
		}
	}

	counts, err := g.parseErrs.CountByType(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("count parse errors for wallet %s: %w", w.ID, err)
	}
	for typ, c := range counts {
		summary.Errors = append(summary.Errors, ErrorSummary{
			Type:       typ,
			Resolved:   c.Resolved,
			Unresolved: c.Unresolved,
		})
	}
	sort.Slice(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].Type < summary.Errors[j].Type
	})
	return summary, nil
}

func summarizeGains(mode domain.GainsMode, events []*domain.RealizedGainEvent, scopeFailures []string) GainsSummary {
	s := GainsSummary{
		Mode:          mode,
		EventCount:    len(events),
		TotalProceeds: decimal.Zero,
		TotalCost:     decimal.Zero,
		TotalGain:     decimal.Zero,
		ScopeFailures: scopeFailures,
	}
	for _, ev := range events {
		s.TotalProceeds = s.TotalProceeds.Add(ev.ProceedsUSD)
		s.TotalCost = s.TotalCost.Add(ev.CostBasisUSD)
		s.TotalGain = s.TotalGain.Add(ev.GainUSD)
		if ev.Exemption != "" {
			s.ExemptCount++
		}
	}
	return s
}
