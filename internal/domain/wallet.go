package domain

// Entity is the tax-reporting subject owning one or more wallets.
type Entity struct {
	ID        string
	Name      string
	CreatedAt int64 // Unix timestamp in milliseconds
}

// Wallet is a chain address (or exchange account) owned by an entity.
type Wallet struct {
	ID        string
	EntityID  string // FK to entities
	Chain     Chain
	Address   string // chain address or exchange account label
	Label     string // human-readable label
	CreatedAt int64  // Unix timestamp in milliseconds
}
