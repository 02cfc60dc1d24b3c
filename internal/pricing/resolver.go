// Package pricing resolves (symbol, timestamp) to USD prices at hourly
// granularity and supplies the USD/VND conversion rate.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceNotFound is returned when no price resolves for a symbol within
// the lookback window.
var ErrPriceNotFound = errors.New("price not found")

// Resolver maps (symbol, timestamp) to a USD price.
type Resolver interface {
	// PriceUSD returns the USD price of symbol at the given unix-ms timestamp.
	// Returns ErrPriceNotFound when no price resolves.
	PriceUSD(ctx context.Context, symbol string, timestampMs int64) (decimal.Decimal, error)
}

// HourMs is the resolver's native granularity.
const HourMs = int64(time.Hour / time.Millisecond)

// TruncateHour truncates a unix-ms timestamp down to the hour.
func TruncateHour(tsMs int64) int64 {
	return tsMs - tsMs%HourMs
}

// LookbackConfig bounds the fallback search for a missing hourly price.
type LookbackConfig struct {
	// MaxHours is how many hours before the requested hour are tried
	// before giving up. Default 24 (same hour, then same day).
	MaxHours int
}

// DefaultLookback returns the default lookback window.
func DefaultLookback() LookbackConfig {
	return LookbackConfig{MaxHours: 24}
}

// VNDRateSource supplies the USD/VND conversion rate at a point in time.
// The rate source is injected so callers choose between a fixed configured
// rate and a time-varying table.
type VNDRateSource interface {
	// Rate returns VND per USD at the given unix-ms timestamp.
	Rate(timestampMs int64) decimal.Decimal
}

// FixedVNDRate is a VNDRateSource returning one configured rate.
type FixedVNDRate struct {
	VNDPerUSD decimal.Decimal
}

// Rate returns the fixed rate regardless of timestamp.
func (f FixedVNDRate) Rate(_ int64) decimal.Decimal {
	return f.VNDPerUSD
}
