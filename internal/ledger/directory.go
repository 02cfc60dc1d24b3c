package ledger

import (
	"context"
	"errors"
	"fmt"

	"chainledger/internal/domain"
	"chainledger/internal/storage"
)

// StoreDirectory answers ownership questions from the wallet store.
type StoreDirectory struct {
	wallets storage.WalletStore
}

// NewStoreDirectory creates a StoreDirectory.
func NewStoreDirectory(wallets storage.WalletStore) *StoreDirectory {
	return &StoreDirectory{wallets: wallets}
}

// Compile-time interface check.
var _ WalletDirectory = (*StoreDirectory)(nil)

// OwnsAddress reports whether the address belongs to one of the entity's
// wallets on the given chain.
func (d *StoreDirectory) OwnsAddress(ctx context.Context, entityID string, chain domain.Chain, address string) (bool, error) {
	w, err := d.wallets.GetByAddress(ctx, chain, address)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup address %s on %s: %w", address, chain, err)
	}
	return w.EntityID == entityID, nil
}
