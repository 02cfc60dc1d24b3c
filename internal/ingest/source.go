// Package ingest feeds raw transactions from external feeds into storage.
package ingest

import (
	"context"

	"chainledger/internal/domain"
)

// Source provides a stream of raw transactions. The channel is closed when
// the context is cancelled or the source terminates.
type Source interface {
	Subscribe(ctx context.Context) (<-chan *domain.RawTransaction, error)
}

// StubSource replays a fixed transaction list. Used for fixtures and tests.
type StubSource struct {
	Transactions []*domain.RawTransaction
}

// NewStubSource creates a StubSource over the given transactions.
func NewStubSource(txs []*domain.RawTransaction) *StubSource {
	return &StubSource{Transactions: txs}
}

// Compile-time interface check.
var _ Source = (*StubSource)(nil)

// Subscribe emits the configured transactions in order, then closes.
func (s *StubSource) Subscribe(ctx context.Context) (<-chan *domain.RawTransaction, error) {
	out := make(chan *domain.RawTransaction, len(s.Transactions))
	go func() {
		defer close(out)
		for _, tx := range s.Transactions {
			select {
			case out <- tx:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
