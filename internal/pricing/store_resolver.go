package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"chainledger/internal/storage"
)

// StoreResolver resolves prices from a PriceTimeseriesStore with an in-process
// cache keyed (symbol, hour). A missing exact hour falls back hour by hour
// within the lookback window.
type StoreResolver struct {
	store    storage.PriceTimeseriesStore
	lookback LookbackConfig

	mu    sync.RWMutex
	cache map[string]decimal.Decimal // symbol|hourMs -> price

	// Hit/Miss are optional counters bumped on cache lookups.
	Hit  func()
	Miss func()
}

// NewStoreResolver creates a StoreResolver over the given store.
func NewStoreResolver(store storage.PriceTimeseriesStore, lookback LookbackConfig) *StoreResolver {
	if lookback.MaxHours <= 0 {
		lookback = DefaultLookback()
	}
	return &StoreResolver{
		store:    store,
		lookback: lookback,
		cache:    make(map[string]decimal.Decimal),
	}
}

// Compile-time interface check.
var _ Resolver = (*StoreResolver)(nil)

// PriceUSD returns the USD price of symbol at the given unix-ms timestamp.
// Stablecoins resolve to 1 without a store lookup.
func (r *StoreResolver) PriceUSD(ctx context.Context, symbol string, timestampMs int64) (decimal.Decimal, error) {
	if isStablecoin(symbol) {
		return decimal.NewFromInt(1), nil
	}

	hour := TruncateHour(timestampMs)
	for i := 0; i < r.lookback.MaxHours; i++ {
		ts := hour - int64(i)*HourMs
		price, ok, err := r.lookupHour(ctx, symbol, ts)
		if err != nil {
			return decimal.Zero, err
		}
		if ok {
			return price, nil
		}
	}
	return decimal.Zero, ErrPriceNotFound
}

func (r *StoreResolver) lookupHour(ctx context.Context, symbol string, hourMs int64) (decimal.Decimal, bool, error) {
	key := cacheKey(symbol, hourMs)

	r.mu.RLock()
	price, cached := r.cache[key]
	r.mu.RUnlock()
	if cached {
		if r.Hit != nil {
			r.Hit()
		}
		return price, true, nil
	}
	if r.Miss != nil {
		r.Miss()
	}

	point, err := r.store.GetAt(ctx, symbol, hourMs)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("lookup price %s@%d: %w", symbol, hourMs, err)
	}

	r.mu.Lock()
	r.cache[key] = point.PriceUSD
	r.mu.Unlock()
	return point.PriceUSD, true, nil
}

func cacheKey(symbol string, hourMs int64) string {
	return fmt.Sprintf("%s|%d", symbol, hourMs)
}

// isStablecoin reports whether the symbol is pegged 1:1 to USD.
func isStablecoin(symbol string) bool {
	switch symbol {
	case "USDT", "USDC", "BUSD", "DAI", "TUSD":
		return true
	}
	return false
}
