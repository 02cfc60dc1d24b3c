package memory

import (
	"context"
	"errors"
	"testing"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

func rawTx(id, walletID string, ts int64) *domain.RawTransaction {
	return &domain.RawTransaction{
		ID:        id,
		WalletID:  walletID,
		Chain:     domain.ChainEthereum,
		Hash:      "0xh" + id,
		Timestamp: ts,
		Status:    domain.TxStatusLoaded,
	}
}

func TestRawTransactionStore_GetByWalletIDOrdering(t *testing.T) {
	s := NewRawTransactionStore()
	ctx := context.Background()

	// Same timestamp breaks ties on ID.
	for _, tx := range []*domain.RawTransaction{
		rawTx("tx3", "w1", 2000),
		rawTx("tx1", "w1", 2000),
		rawTx("tx2", "w1", 1000),
		rawTx("tx4", "w2", 500),
	} {
		if err := s.Insert(ctx, tx); err != nil {
			t.Fatalf("Insert %s failed: %v", tx.ID, err)
		}
	}

	got, err := s.GetByWalletID(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByWalletID failed: %v", err)
	}
	want := []string{"tx2", "tx1", "tx3"}
	if len(got) != len(want) {
		t.Fatalf("count: got %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestRawTransactionStore_InsertBulkAtomic(t *testing.T) {
	s := NewRawTransactionStore()
	ctx := context.Background()

	if err := s.Insert(ctx, rawTx("tx1", "w1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	// One duplicate poisons the whole batch.
	err := s.InsertBulk(ctx, []*domain.RawTransaction{
		rawTx("tx2", "w1", 2000),
		rawTx("tx1", "w1", 1000),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("bulk with duplicate: got %v", err)
	}
	if _, err := s.GetByID(ctx, "tx2"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("partial batch was applied")
	}
}

func TestRawTransactionStore_StatusLifecycle(t *testing.T) {
	s := NewRawTransactionStore()
	ctx := context.Background()

	if err := s.Insert(ctx, rawTx("tx1", "w1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.UpdateStatus(ctx, "tx1", domain.TxStatusParsed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, err := s.GetByID(ctx, "tx1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.TxStatusParsed {
		t.Errorf("status: got %s", got.Status)
	}

	parsed, err := s.GetByStatus(ctx, "w1", domain.TxStatusParsed)
	if err != nil {
		t.Fatalf("GetByStatus failed: %v", err)
	}
	if len(parsed) != 1 {
		t.Errorf("parsed: got %d, want 1", len(parsed))
	}
	loaded, err := s.GetByStatus(ctx, "w1", domain.TxStatusLoaded)
	if err != nil {
		t.Fatalf("GetByStatus failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded: got %d, want 0", len(loaded))
	}

	if err := s.UpdateStatus(ctx, "tx1", "BOGUS"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("invalid status: got %v", err)
	}
	if err := s.UpdateStatus(ctx, "tx-absent", domain.TxStatusParsed); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing tx: got %v", err)
	}
}
