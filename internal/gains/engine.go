package gains

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
	"chainledger/internal/idhash"
	"chainledger/internal/storage"
)

// Options configures an Engine.
type Options struct {
	Journal  storage.JournalStore
	Accounts storage.AccountStore
	Events   storage.GainEventStore
	Sink     *faults.Sink // optional, records per-scope balance failures

	Mode domain.GainsMode

	// ThresholdUSD exempts disposals whose proceeds fall below it.
	// Zero disables the exemption.
	ThresholdUSD decimal.Decimal

	// Workers bounds how many scopes match in parallel.
	Workers int

	Logger *log.Logger
	Now    func() time.Time
}

// Engine replays an entity's journal and matches every disposal against open
// lots first-in-first-out, scoped per symbol and, in PER_WALLET mode, per
// wallet. A balance failure poisons only its own scope.
type Engine struct {
	journal   storage.JournalStore
	accounts  storage.AccountStore
	events    storage.GainEventStore
	sink      *faults.Sink
	mode      domain.GainsMode
	threshold decimal.Decimal
	workers   int
	logger    *log.Logger
	now       func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Journal == nil || opts.Accounts == nil || opts.Events == nil {
		return nil, fmt.Errorf("gains engine: journal, account and event stores are required")
	}
	if !opts.Mode.IsValid() {
		return nil, fmt.Errorf("gains engine: invalid mode %q", opts.Mode)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		journal:   opts.Journal,
		accounts:  opts.Accounts,
		events:    opts.Events,
		sink:      opts.Sink,
		mode:      opts.Mode,
		threshold: opts.ThresholdUSD,
		workers:   opts.Workers,
		logger:    opts.Logger,
		now:       opts.Now,
	}, nil
}

// ScopeError is a balance failure confined to one lot queue.
type ScopeError struct {
	Scope domain.ScopeKey
	Err   error
}

// MatchResult aggregates one full matching run.
type MatchResult struct {
	Events      []*domain.RealizedGainEvent
	Scopes      int
	ScopeErrors []ScopeError
}

// Match replays the entity's journal and rebuilds its realized gain events
// for the engine's mode. Prior events for the mode are superseded, so
// re-matching is idempotent.
func (e *Engine) Match(ctx context.Context, entityID string) (*MatchResult, error) {
	entries, err := e.journal.GetByEntityID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load journal for %s: %w", entityID, err)
	}
	accounts, err := e.accounts.GetByEntityID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load accounts for %s: %w", entityID, err)
	}
	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	scopes := make(map[domain.ScopeKey][]SplitEvent)
	for _, ev := range BuildEvents(entries, byID) {
		key := scopeFor(entityID, ev, e.mode)
		scopes[key] = append(scopes[key], ev)
	}

	result := &MatchResult{Scopes: len(scopes)}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.workers)
	)
	for key, events := range scopes {
		wg.Add(1)
		go func(key domain.ScopeKey, events []SplitEvent) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			matched, err := e.matchScope(key, events)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.ScopeErrors = append(result.ScopeErrors, ScopeError{Scope: key, Err: err})
				return
			}
			result.Events = append(result.Events, matched...)
		}(key, events)
	}
	wg.Wait()

	sort.Slice(result.Events, func(i, j int) bool {
		a, b := result.Events[i], result.Events[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.ID < b.ID
	})
	sort.Slice(result.ScopeErrors, func(i, j int) bool {
		return result.ScopeErrors[i].Scope.String() < result.ScopeErrors[j].Scope.String()
	})

	for _, se := range result.ScopeErrors {
		e.logger.Printf("[gains] scope %s halted: %v", se.Scope, se.Err)
		if e.sink != nil {
			if _, err := e.sink.Record(ctx, se.Scope.WalletID, "", se.Err); err != nil {
				return nil, err
			}
		}
	}

	if err := e.events.DeleteByEntityID(ctx, entityID, e.mode); err != nil {
		return nil, fmt.Errorf("supersede gain events for %s: %w", entityID, err)
	}
	if len(result.Events) > 0 {
		if err := e.events.InsertBulk(ctx, result.Events); err != nil {
			return nil, fmt.Errorf("insert gain events for %s: %w", entityID, err)
		}
	}
	return result, nil
}

// matchScope runs FIFO matching over one scope's chronological events.
// The whole scope is discarded on a balance failure.
func (e *Engine) matchScope(scope domain.ScopeKey, events []SplitEvent) ([]*domain.RealizedGainEvent, error) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].Seq < events[j].Seq
	})

	var (
		queue []domain.Lot
		out   []*domain.RealizedGainEvent
	)
	for _, ev := range events {
		switch {
		case acquisition(ev, e.mode):
			queue = append(queue, domain.Lot{
				EntryID:   ev.EntryID,
				Symbol:    ev.Symbol,
				Timestamp: ev.Timestamp,
				Quantity:  ev.Quantity,
				Remaining: ev.Quantity,
				CostUSD:   ev.ValueUSD.Abs(),
			})
		case disposal(ev, e.mode):
			matched, rest, err := e.dispose(scope, ev, queue)
			if err != nil {
				return nil, err
			}
			queue = rest
			out = append(out, matched...)
		}
	}
	return out, nil
}

// dispose consumes lots from the front of the queue to cover one disposal,
// emitting one event per consumed fragment.
func (e *Engine) dispose(scope domain.ScopeKey, ev SplitEvent, queue []domain.Lot) ([]*domain.RealizedGainEvent, []domain.Lot, error) {
	toMatch := ev.Quantity.Abs()
	proceeds := ev.ValueUSD.Abs()

	// Transfers between own wallets move holdings without realizing
	// anything; the receiving wallet's queue re-opens the lots.
	silent := ev.EntryType == domain.EntryTransfer && ev.SelfTransfer

	var exemption domain.ExemptionReason
	if !silent && e.threshold.IsPositive() && proceeds.LessThan(e.threshold) {
		exemption = domain.ExemptBelowThreshold
	}

	var out []*domain.RealizedGainEvent
	fragment := 0
	for toMatch.IsPositive() {
		if len(queue) == 0 {
			return nil, nil, &faults.BalanceError{
				Scope:  scope.String(),
				Symbol: ev.Symbol,
				Reason: fmt.Sprintf("disposal %s exceeds open lots by %s", ev.EntryID, toMatch),
			}
		}
		lot := &queue[0]
		take := decimal.Min(lot.Remaining, toMatch)
		basis := lot.CostUSD.Mul(take).Div(lot.Quantity)

		if !silent {
			prorated := decimal.Zero
			if !ev.Quantity.IsZero() {
				prorated = proceeds.Mul(take).Div(ev.Quantity.Abs())
			}
			gain := prorated.Sub(basis)
			if exemption != "" {
				gain = decimal.Zero
			}
			out = append(out, &domain.RealizedGainEvent{
				ID:              idhash.ComputeGainEventID(scope, ev.EntryID, lot.EntryID, fragment),
				EntityID:        scope.EntityID,
				WalletID:        scope.WalletID,
				Symbol:          ev.Symbol,
				Timestamp:       ev.Timestamp,
				DisposalEntryID: ev.EntryID,
				LotEntryID:      lot.EntryID,
				Quantity:        take,
				ProceedsUSD:     prorated,
				CostBasisUSD:    basis,
				GainUSD:         gain,
				Exemption:       exemption,
				Mode:            e.mode,
				CreatedAt:       e.now().UnixMilli(),
			})
			fragment++
		}

		lot.Remaining = lot.Remaining.Sub(take)
		if lot.Remaining.IsZero() {
			queue = queue[1:]
		}
		toMatch = toMatch.Sub(take)
	}
	return out, queue, nil
}
