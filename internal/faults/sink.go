package faults

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chainledger/internal/domain"
)

// Recorder persists parse error records. Implemented by storage.ParseErrorStore.
type Recorder interface {
	Insert(ctx context.Context, rec *domain.ParseErrorRecord) error
}

// Sink classifies errors and writes them as ParseErrorRecords.
// It is the only creator of such records.
type Sink struct {
	recorder Recorder
	now      func() time.Time
}

// NewSink creates a Sink writing through the given recorder.
func NewSink(recorder Recorder) *Sink {
	return &Sink{recorder: recorder, now: time.Now}
}

// Record classifies err, persists one ParseErrorRecord for it and returns
// the record. rawTxID may be empty when the failure precedes transaction
// identification.
func (s *Sink) Record(ctx context.Context, walletID, rawTxID string, err error) (*domain.ParseErrorRecord, error) {
	rec := &domain.ParseErrorRecord{
		ID:        uuid.NewString(),
		RawTxID:   rawTxID,
		WalletID:  walletID,
		Type:      Classify(err),
		Message:   err.Error(),
		Resolved:  false,
		CreatedAt: s.now().UnixMilli(),
	}

	if diag, ok := err.(interface{ Diagnostic() string }); ok {
		rec.Diagnostic = diag.Diagnostic()
	}

	if err := s.recorder.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("record parse error: %w", err)
	}
	return rec, nil
}
