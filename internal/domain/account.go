package domain

import "strings"

// AccountType classifies an account for double-entry purposes.
type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountIncome    AccountType = "INCOME"
	AccountExpense   AccountType = "EXPENSE"
)

// String returns the string representation of AccountType.
func (t AccountType) String() string {
	return string(t)
}

// IsValid checks if the account type is a valid value.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountIncome, AccountExpense:
		return true
	}
	return false
}

// BalanceType distinguishes protocol positions held in an account.
type BalanceType string

const (
	BalanceSupply BalanceType = "supply"
	BalanceBorrow BalanceType = "borrow"
	BalanceReward BalanceType = "reward"
)

// String returns the string representation of BalanceType.
func (b BalanceType) String() string {
	return string(b)
}

// Account is an entity-scoped, uniquely labeled double-entry account.
// Accounts are created lazily by the assembler and never deleted once referenced.
// Corresponds to accounts table in PostgreSQL.
type Account struct {
	ID          string      // PRIMARY KEY
	EntityID    string      // FK to entities
	Label       string      // globally unique label
	Type        AccountType // ASSET | LIABILITY | INCOME | EXPENSE
	Symbol      string      // asset symbol, empty for pure income/expense accounts
	Protocol    Protocol    // protocol holding the position, empty for plain wallets
	BalanceType BalanceType // supply | borrow | reward, empty for plain wallets
	CreatedAt   int64       // record creation timestamp (ms)
}

// AccountKey identifies an account the assembler needs; the arena resolves it
// to an Account, creating one on first use.
type AccountKey struct {
	EntityID    string
	Type        AccountType
	Symbol      string
	Protocol    Protocol
	BalanceType BalanceType
}

// Label derives the globally unique account label for the key.
// Same key always yields the same label, which carries the uniqueness invariant.
func (k AccountKey) Label() string {
	parts := []string{k.EntityID, string(k.Type)}
	if k.Symbol != "" {
		parts = append(parts, k.Symbol)
	}
	if k.Protocol != "" {
		parts = append(parts, string(k.Protocol))
	}
	if k.BalanceType != "" {
		parts = append(parts, string(k.BalanceType))
	}
	return strings.Join(parts, ":")
}
