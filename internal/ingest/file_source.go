package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"chainledger/internal/domain"
	"chainledger/internal/observability"
)

// FileSource replays transactions from a JSON file holding an array in the
// wire format. Malformed records are logged and skipped.
type FileSource struct {
	path   string
	logger *log.Logger
}

// NewFileSource creates a FileSource over the given file.
func NewFileSource(path string, logger *log.Logger) *FileSource {
	if logger == nil {
		logger = log.Default()
	}
	return &FileSource{path: path, logger: logger}
}

// Compile-time interface check.
var _ Source = (*FileSource)(nil)

// Subscribe reads the whole file up front and emits its transactions in
// order, then closes the stream.
func (s *FileSource) Subscribe(ctx context.Context) (<-chan *domain.RawTransaction, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var wire []wireTransaction
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	out := make(chan *domain.RawTransaction, len(wire))
	go func() {
		defer close(out)
		nowMs := time.Now().UnixMilli()
		for i := range wire {
			tx, err := wire[i].toDomain(nowMs)
			if err != nil {
				s.logger.Printf("skipping record %d: %v", i, err)
				observability.DefaultMetrics.IngestErrors.Inc()
				continue
			}
			select {
			case out <- tx:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
