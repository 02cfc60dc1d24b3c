package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// GainEventStore implements storage.GainEventStore using PostgreSQL.
type GainEventStore struct {
	pool *Pool
}

// NewGainEventStore creates a new GainEventStore.
func NewGainEventStore(pool *Pool) *GainEventStore {
	return &GainEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GainEventStore = (*GainEventStore)(nil)

// InsertBulk adds multiple gain events atomically. Fails entire batch on any duplicate.
func (s *GainEventStore) InsertBulk(ctx context.Context, events []*domain.RealizedGainEvent) error {
	if len(events) == 0 {
		return nil
	}

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx)

	query := `
		INSERT INTO gain_events (
			id, entity_id, wallet_id, symbol, timestamp,
			disposal_entry_id, lot_entry_id, quantity,
			proceeds_usd, cost_basis_usd, gain_usd,
			exemption, mode, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, e := range events {
		_, err := dbTx.Exec(ctx, query,
			e.ID, e.EntityID, e.WalletID, e.Symbol, e.Timestamp,
			e.DisposalEntryID, e.LotEntryID, e.Quantity.String(),
			e.ProceedsUSD.String(), e.CostBasisUSD.String(), e.GainUSD.String(),
			string(e.Exemption), string(e.Mode), e.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert gain event: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByEntityID retrieves events for an entity and mode, ordered by timestamp ASC, id ASC.
func (s *GainEventStore) GetByEntityID(ctx context.Context, entityID string, mode domain.GainsMode) ([]*domain.RealizedGainEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, entity_id, wallet_id, symbol, timestamp,
		       disposal_entry_id, lot_entry_id, quantity::text,
		       proceeds_usd::text, cost_basis_usd::text, gain_usd::text,
		       exemption, mode, created_at
		FROM gain_events
		WHERE entity_id = $1 AND mode = $2
		ORDER BY timestamp ASC, id ASC
	`, entityID, string(mode))
	if err != nil {
		return nil, fmt.Errorf("get gain events by entity id: %w", err)
	}
	defer rows.Close()

	var out []*domain.RealizedGainEvent
	for rows.Next() {
		var (
			e                    domain.RealizedGainEvent
			qty, proceeds        string
			basis, gain          string
			exemption, modeValue string
		)
		err := rows.Scan(&e.ID, &e.EntityID, &e.WalletID, &e.Symbol, &e.Timestamp,
			&e.DisposalEntryID, &e.LotEntryID, &qty,
			&proceeds, &basis, &gain,
			&exemption, &modeValue, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan gain event: %w", err)
		}
		if e.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse gain quantity: %w", err)
		}
		if e.ProceedsUSD, err = decimal.NewFromString(proceeds); err != nil {
			return nil, fmt.Errorf("parse proceeds: %w", err)
		}
		if e.CostBasisUSD, err = decimal.NewFromString(basis); err != nil {
			return nil, fmt.Errorf("parse cost basis: %w", err)
		}
		if e.GainUSD, err = decimal.NewFromString(gain); err != nil {
			return nil, fmt.Errorf("parse gain: %w", err)
		}
		e.Exemption = domain.ExemptionReason(exemption)
		e.Mode = domain.GainsMode(modeValue)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gain events: %w", err)
	}
	return out, nil
}

// DeleteByEntityID removes all events for an entity and mode.
func (s *GainEventStore) DeleteByEntityID(ctx context.Context, entityID string, mode domain.GainsMode) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM gain_events WHERE entity_id = $1 AND mode = $2`,
		entityID, string(mode))
	if err != nil {
		return fmt.Errorf("delete gain events by entity id: %w", err)
	}
	return nil
}
