package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chainledger/internal/storage"
)

// PriceTimeseriesStore implements storage.PriceTimeseriesStore using ClickHouse.
type PriceTimeseriesStore struct {
	conn *Conn
}

// NewPriceTimeseriesStore creates a new PriceTimeseriesStore.
func NewPriceTimeseriesStore(conn *Conn) *PriceTimeseriesStore {
	return &PriceTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceTimeseriesStore = (*PriceTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (symbol, timestamp_ms).
// ClickHouse MergeTree does not enforce uniqueness at insert time, so duplicates
// are checked explicitly before the batch is sent.
func (s *PriceTimeseriesStore) InsertBulk(ctx context.Context, points []*storage.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		symbol      string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.Symbol, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.Symbol, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_timeseries (symbol, timestamp_ms, price_usd)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.Symbol, uint64(p.TimestampMs), p.PriceUSD); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetAt retrieves the point for a symbol at an exact hour timestamp.
func (s *PriceTimeseriesStore) GetAt(ctx context.Context, symbol string, timestampMs int64) (*storage.PricePoint, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT symbol, timestamp_ms, price_usd
		FROM price_timeseries
		WHERE symbol = ? AND timestamp_ms = ?
		LIMIT 1
	`, symbol, uint64(timestampMs))

	var (
		p  storage.PricePoint
		ts uint64
	)
	if err := row.Scan(&p.Symbol, &ts, &p.PriceUSD); err != nil {
		if isNoRowsError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get price point: %w", err)
	}
	p.TimestampMs = int64(ts)
	return &p, nil
}

// GetRange retrieves points for a symbol within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *PriceTimeseriesStore) GetRange(ctx context.Context, symbol string, start, end int64) ([]*storage.PricePoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT symbol, timestamp_ms, price_usd
		FROM price_timeseries
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, symbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("get price range: %w", err)
	}
	defer rows.Close()

	var out []*storage.PricePoint
	for rows.Next() {
		var (
			p  storage.PricePoint
			ts uint64
		)
		if err := rows.Scan(&p.Symbol, &ts, &p.PriceUSD); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.TimestampMs = int64(ts)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price points: %w", err)
	}
	return out, nil
}

func (s *PriceTimeseriesStore) exists(ctx context.Context, symbol string, timestampMs int64) (bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM price_timeseries
		WHERE symbol = ? AND timestamp_ms = ?
	`, symbol, uint64(timestampMs))

	var count uint64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// isNoRowsError checks if error indicates an empty result set.
func isNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
