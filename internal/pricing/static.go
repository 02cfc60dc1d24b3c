package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// StaticResolver resolves from a fixed symbol->price table, ignoring
// timestamps. Used by fixtures and tests.
type StaticResolver struct {
	Prices map[string]decimal.Decimal
}

// Compile-time interface check.
var _ Resolver = (*StaticResolver)(nil)

// PriceUSD returns the configured price for symbol.
func (r *StaticResolver) PriceUSD(_ context.Context, symbol string, _ int64) (decimal.Decimal, error) {
	if isStablecoin(symbol) {
		return decimal.NewFromInt(1), nil
	}
	price, ok := r.Prices[symbol]
	if !ok {
		return decimal.Zero, ErrPriceNotFound
	}
	return price, nil
}
