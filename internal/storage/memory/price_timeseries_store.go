package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"chainledger/internal/storage"
)

// PriceTimeseriesStore is an in-memory implementation of storage.PriceTimeseriesStore.
type PriceTimeseriesStore struct {
	mu   sync.RWMutex
	data map[string]*storage.PricePoint // keyed by symbol|timestamp
}

// NewPriceTimeseriesStore creates a new in-memory price timeseries store.
func NewPriceTimeseriesStore() *PriceTimeseriesStore {
	return &PriceTimeseriesStore{
		data: make(map[string]*storage.PricePoint),
	}
}

// Compile-time interface check.
var _ storage.PriceTimeseriesStore = (*PriceTimeseriesStore)(nil)

// priceKey generates a unique key for a price point.
func priceKey(symbol string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", symbol, timestampMs)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (symbol, timestamp_ms).
func (s *PriceTimeseriesStore) InsertBulk(_ context.Context, points []*storage.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := priceKey(p.Symbol, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[key]; exists {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, p := range points {
		cp := *p
		s.data[priceKey(p.Symbol, p.TimestampMs)] = &cp
	}
	return nil
}

// GetAt retrieves the point for a symbol at an exact hour timestamp.
func (s *PriceTimeseriesStore) GetAt(_ context.Context, symbol string, timestampMs int64) (*storage.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[priceKey(symbol, timestampMs)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetRange retrieves points for a symbol within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *PriceTimeseriesStore) GetRange(_ context.Context, symbol string, start, end int64) ([]*storage.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.PricePoint
	for _, p := range s.data {
		if p.Symbol == symbol && p.TimestampMs >= start && p.TimestampMs <= end {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimestampMs < out[j].TimestampMs })
	return out, nil
}
