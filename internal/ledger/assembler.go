// Package ledger assembles parser proposals into balanced, valued journal
// entries backed by lazily created accounts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
	"chainledger/internal/idhash"
	"chainledger/internal/parse"
	"chainledger/internal/pricing"
	"chainledger/internal/storage"
)

// WalletDirectory answers whether an address belongs to one of an entity's
// wallets. Used to classify transfers between own wallets.
type WalletDirectory interface {
	OwnsAddress(ctx context.Context, entityID string, chain domain.Chain, address string) (bool, error)
}

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	Accounts  storage.AccountStore
	Prices    pricing.Resolver
	VNDRate   pricing.VNDRateSource
	Directory WalletDirectory // optional, disables self-transfer detection when nil
	Logger    *log.Logger
	Now       func() time.Time
}

// Assembler turns parse results into journal entries: it resolves accounts,
// attaches USD and VND valuations, and enforces the zero-sum invariants.
type Assembler struct {
	accounts  storage.AccountStore
	prices    pricing.Resolver
	vndRate   pricing.VNDRateSource
	directory WalletDirectory
	logger    *log.Logger
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]*domain.Account // label -> account
}

// NewAssembler creates an Assembler.
func NewAssembler(opts AssemblerOptions) (*Assembler, error) {
	if opts.Accounts == nil {
		return nil, fmt.Errorf("assembler: account store is required")
	}
	if opts.Prices == nil {
		return nil, fmt.Errorf("assembler: price resolver is required")
	}
	if opts.VNDRate == nil {
		return nil, fmt.Errorf("assembler: vnd rate source is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assembler{
		accounts:  opts.Accounts,
		prices:    opts.Prices,
		vndRate:   opts.VNDRate,
		directory: opts.Directory,
		logger:    opts.Logger,
		now:       opts.Now,
		cache:     make(map[string]*domain.Account),
	}, nil
}

// Assemble builds the journal entry for a parsed transaction. The entry ID is
// deterministic, so re-assembling the same transaction yields the same entry.
func (a *Assembler) Assemble(ctx context.Context, w *domain.Wallet, tx *domain.RawTransaction, res *parse.Result) (*domain.JournalEntry, error) {
	entryID := idhash.ComputeEntryID(tx.Chain, tx.Hash, w.ID, res.Type)
	if len(res.Movements) < 2 {
		return nil, &faults.BalanceError{
			Scope:  entryID,
			Reason: fmt.Sprintf("entry needs at least two movements, got %d", len(res.Movements)),
		}
	}

	entry := &domain.JournalEntry{
		ID:        entryID,
		EntityID:  w.EntityID,
		WalletID:  w.ID,
		Type:      res.Type,
		Timestamp: tx.Timestamp,
		RawTxID:   tx.ID,
		CreatedAt: a.now().UnixMilli(),
	}

	vnd := a.vndRate.Rate(tx.Timestamp)
	for i, m := range res.Movements {
		acct, err := a.account(ctx, domain.AccountKey{
			EntityID:    w.EntityID,
			Type:        m.AccountType,
			Symbol:      m.Symbol,
			Protocol:    m.Protocol,
			BalanceType: m.BalanceType,
		})
		if err != nil {
			return nil, err
		}

		price, err := a.prices.PriceUSD(ctx, m.Symbol, tx.Timestamp)
		if err != nil {
			if errors.Is(err, pricing.ErrPriceNotFound) {
				return nil, &faults.MissingPriceError{Symbol: m.Symbol, Timestamp: tx.Timestamp}
			}
			return nil, fmt.Errorf("resolve price for %s: %w", m.Symbol, err)
		}

		usd := m.Quantity.Mul(price)
		entry.Splits = append(entry.Splits, domain.JournalSplit{
			EntryID:   entryID,
			AccountID: acct.ID,
			Index:     i,
			Symbol:    m.Symbol,
			Quantity:  m.Quantity,
			ValueUSD:  usd,
			ValueVND:  usd.Mul(vnd).Round(4),
		})
	}

	if err := checkBalanced(entry); err != nil {
		return nil, err
	}

	if entry.Type == domain.EntryTransfer && a.directory != nil {
		counterparty := tx.From
		if parse.EqualAddress(tx.Chain, tx.From, w.Address) {
			counterparty = tx.To
		}
		owns, err := a.directory.OwnsAddress(ctx, w.EntityID, tx.Chain, counterparty)
		if err != nil {
			return nil, fmt.Errorf("resolve transfer counterparty: %w", err)
		}
		entry.SelfTransfer = owns
	}

	return entry, nil
}

// AssembleGas builds the gas fee companion entry for a transaction the wallet
// paid gas on. Returns nil when the wallet was not the sender or no gas was
// consumed.
func (a *Assembler) AssembleGas(ctx context.Context, w *domain.Wallet, tx *domain.RawTransaction) (*domain.JournalEntry, error) {
	return a.AssembleFee(ctx, w, tx, domain.EntryGasFee)
}

// AssembleFee builds an entry moving the transaction's gas into an expense
// account under the given entry type. Returns nil when the wallet was not the
// sender or no gas was consumed.
func (a *Assembler) AssembleFee(ctx context.Context, w *domain.Wallet, tx *domain.RawTransaction, typ domain.EntryType) (*domain.JournalEntry, error) {
	if !tx.GasUsed.IsPositive() || !parse.EqualAddress(tx.Chain, tx.From, w.Address) {
		return nil, nil
	}
	native := tx.Chain.NativeSymbol()
	res := &parse.Result{
		Type: typ,
		Movements: []parse.Movement{
			{AccountType: domain.AccountAsset, Symbol: native, Quantity: tx.GasUsed.Neg()},
			{AccountType: domain.AccountExpense, Symbol: native, Quantity: tx.GasUsed},
		},
	}
	return a.Assemble(ctx, w, tx, res)
}

// account resolves a key to an account, creating it on first use. Creation
// races between concurrent assemblers resolve by re-reading the winner's row.
func (a *Assembler) account(ctx context.Context, key domain.AccountKey) (*domain.Account, error) {
	label := key.Label()

	a.mu.Lock()
	if acct, ok := a.cache[label]; ok {
		a.mu.Unlock()
		return acct, nil
	}
	a.mu.Unlock()

	acct, err := a.accounts.GetByLabel(ctx, label)
	if errors.Is(err, storage.ErrNotFound) {
		acct = &domain.Account{
			ID:          idhash.ComputeAccountID(label),
			EntityID:    key.EntityID,
			Label:       label,
			Type:        key.Type,
			Symbol:      key.Symbol,
			Protocol:    key.Protocol,
			BalanceType: key.BalanceType,
			CreatedAt:   a.now().UnixMilli(),
		}
		err = a.accounts.Insert(ctx, acct)
		if errors.Is(err, storage.ErrDuplicateKey) {
			acct, err = a.accounts.GetByLabel(ctx, label)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve account %s: %w", label, err)
	}

	a.mu.Lock()
	a.cache[label] = acct
	a.mu.Unlock()
	return acct, nil
}

// checkBalanced enforces the double-entry invariants: signed quantities sum
// to zero per symbol, and USD values sum to zero across the whole entry
// within the rounding tolerance.
func checkBalanced(e *domain.JournalEntry) error {
	bySymbol := make(map[string]decimal.Decimal)
	totalUSD := decimal.Zero
	for _, sp := range e.Splits {
		bySymbol[sp.Symbol] = bySymbol[sp.Symbol].Add(sp.Quantity)
		totalUSD = totalUSD.Add(sp.ValueUSD)
	}
	for sym, sum := range bySymbol {
		if !sum.IsZero() {
			return &faults.BalanceError{
				Scope:  e.ID,
				Symbol: sym,
				Reason: "quantities sum to " + sum.String(),
			}
		}
	}
	if totalUSD.Abs().GreaterThan(domain.ValueTolerance) {
		return &faults.BalanceError{
			Scope:  e.ID,
			Reason: "usd values sum to " + totalUSD.String(),
		}
	}
	return nil
}
