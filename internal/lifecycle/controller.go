// Package lifecycle drives raw transactions through the parsing state
// machine: LOADED to PARSED, ERROR or IGNORED.
package lifecycle

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sync"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
	"chainledger/internal/ledger"
	"chainledger/internal/observability"
	"chainledger/internal/parse"
	"chainledger/internal/protocol"
	"chainledger/internal/storage"
)

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	RawTxs    storage.RawTransactionStore
	Journal   storage.JournalStore
	Resolver  *protocol.Resolver
	Registry  *parse.Registry
	Assembler *ledger.Assembler
	Sink      *faults.Sink
	Logger    *log.Logger

	// WalletConcurrency bounds how many wallets parse in parallel.
	// Transactions within one wallet always parse chronologically.
	WalletConcurrency int
}

// Controller owns transaction state transitions. Parsing one transaction is
// serialized per transaction ID; re-parsing supersedes prior journal entries
// rather than editing them.
type Controller struct {
	rawTxs      storage.RawTransactionStore
	journal     storage.JournalStore
	resolver    *protocol.Resolver
	registry    *parse.Registry
	assembler   *ledger.Assembler
	sink        *faults.Sink
	logger      *log.Logger
	concurrency int

	// Striped by transaction ID hash so the lock set stays bounded over
	// the lifetime of a long-running server.
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

// NewController creates a Controller.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.RawTxs == nil || opts.Journal == nil {
		return nil, fmt.Errorf("controller: raw transaction and journal stores are required")
	}
	if opts.Resolver == nil || opts.Registry == nil || opts.Assembler == nil {
		return nil, fmt.Errorf("controller: resolver, registry and assembler are required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("controller: error sink is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.WalletConcurrency <= 0 {
		opts.WalletConcurrency = 4
	}
	return &Controller{
		rawTxs:      opts.RawTxs,
		journal:     opts.Journal,
		resolver:    opts.Resolver,
		registry:    opts.Registry,
		assembler:   opts.Assembler,
		sink:        opts.Sink,
		logger:      opts.Logger,
		concurrency: opts.WalletConcurrency,
	}, nil
}

// Outcome describes what happened to one transaction.
type Outcome struct {
	Status     domain.TxStatus
	Entries    []*domain.JournalEntry
	Resolution protocol.Resolution
	Record     *domain.ParseErrorRecord // set when Status is ERROR
	Warnings   []string
}

// ParseTransaction runs one transaction through resolution, parsing and
// assembly. Safe for concurrent use; calls for the same transaction ID are
// serialized. A parse failure is recorded and reflected in the outcome, not
// returned as an error. The returned error signals infrastructure failure.
func (c *Controller) ParseTransaction(ctx context.Context, w *domain.Wallet, tx *domain.RawTransaction) (*Outcome, error) {
	lock := c.lockFor(tx.ID)
	lock.Lock()
	defer lock.Unlock()

	if !tx.Chain.IsValid() {
		return c.fail(ctx, w, tx, &faults.UnknownChainError{Chain: string(tx.Chain)})
	}

	if tx.Decoded == nil && tx.Value.IsZero() {
		return c.ignore(ctx, tx)
	}

	res := c.resolver.Resolve(tx)
	observability.RecordProtocolResolution(string(res.Protocol))
	out := &Outcome{Resolution: res}
	if res.Protocol == domain.ProtocolUnknown {
		if tx.Decoded == nil {
			return c.ignore(ctx, tx)
		}
		return c.fail(ctx, w, tx, &faults.UnknownContractError{Chain: tx.Chain, Address: tx.To})
	}
	if res.Confidence < protocol.ConfidenceExact {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("protocol %s resolved with confidence %.1f", res.Protocol, res.Confidence))
	}

	parser, err := c.registry.Dispatch(res.Protocol, tx)
	if err != nil {
		return c.fail(ctx, w, tx, err)
	}

	result, err := parser.Parse(tx, w)
	if err != nil {
		return c.fail(ctx, w, tx, err)
	}
	out.Warnings = append(out.Warnings, result.Warnings...)

	if len(result.Movements) > 0 {
		entry, err := c.assembler.Assemble(ctx, w, tx, result)
		if err != nil {
			return c.fail(ctx, w, tx, err)
		}
		out.Entries = append(out.Entries, entry)

		gas, err := c.assembler.AssembleGas(ctx, w, tx)
		if err != nil {
			return c.fail(ctx, w, tx, err)
		}
		if gas != nil {
			out.Entries = append(out.Entries, gas)
		}
	} else {
		// Movement-free results (approvals) still burn gas; the fee carries
		// the result's own entry type.
		fee, err := c.assembler.AssembleFee(ctx, w, tx, result.Type)
		if err != nil {
			return c.fail(ctx, w, tx, err)
		}
		if fee != nil {
			out.Entries = append(out.Entries, fee)
		}
	}

	if len(out.Entries) == 0 {
		return c.ignore(ctx, tx)
	}

	// Supersede any prior parse, then commit the new entries.
	if err := c.journal.DeleteByRawTxID(ctx, tx.ID); err != nil {
		return nil, fmt.Errorf("supersede entries for %s: %w", tx.ID, err)
	}
	for _, entry := range out.Entries {
		if err := c.journal.InsertEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("insert entry %s: %w", entry.ID, err)
		}
		observability.RecordEntryAssembled(string(entry.Type))
	}
	if err := c.rawTxs.UpdateStatus(ctx, tx.ID, domain.TxStatusParsed); err != nil {
		return nil, fmt.Errorf("mark %s parsed: %w", tx.ID, err)
	}
	out.Status = domain.TxStatusParsed
	observability.RecordTransactionParsed(string(out.Status))
	return out, nil
}

// fail records the classified error, removes superseded entries and marks the
// transaction ERROR. Exactly one record is written per failed parse.
func (c *Controller) fail(ctx context.Context, w *domain.Wallet, tx *domain.RawTransaction, parseErr error) (*Outcome, error) {
	rec, err := c.sink.Record(ctx, w.ID, tx.ID, parseErr)
	if err != nil {
		return nil, err
	}
	if err := c.journal.DeleteByRawTxID(ctx, tx.ID); err != nil {
		return nil, fmt.Errorf("supersede entries for %s: %w", tx.ID, err)
	}
	if err := c.rawTxs.UpdateStatus(ctx, tx.ID, domain.TxStatusError); err != nil {
		return nil, fmt.Errorf("mark %s errored: %w", tx.ID, err)
	}
	observability.RecordTransactionParsed(string(domain.TxStatusError))
	observability.RecordParseError(string(rec.Type))
	c.logger.Printf("[lifecycle] tx %s failed: %s: %v", tx.Hash, rec.Type, parseErr)
	return &Outcome{Status: domain.TxStatusError, Record: rec}, nil
}

// ignore marks an economically empty transaction IGNORED.
func (c *Controller) ignore(ctx context.Context, tx *domain.RawTransaction) (*Outcome, error) {
	if err := c.journal.DeleteByRawTxID(ctx, tx.ID); err != nil {
		return nil, fmt.Errorf("supersede entries for %s: %w", tx.ID, err)
	}
	if err := c.rawTxs.UpdateStatus(ctx, tx.ID, domain.TxStatusIgnored); err != nil {
		return nil, fmt.Errorf("mark %s ignored: %w", tx.ID, err)
	}
	observability.RecordTransactionParsed(string(domain.TxStatusIgnored))
	return &Outcome{Status: domain.TxStatusIgnored}, nil
}

// lockFor maps a transaction ID to its lock stripe. Distinct IDs may share a
// stripe; that over-serializes but never under-serializes.
func (c *Controller) lockFor(txID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(txID))
	return &c.locks[h.Sum32()%lockStripes]
}
