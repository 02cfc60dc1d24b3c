// Package idhash computes deterministic record IDs so that re-parsing and
// re-matching produce the same keys instead of accumulating duplicates.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"chainledger/internal/domain"
)

// ComputeEntryID computes a deterministic journal entry ID using SHA256.
// Formula: SHA256(chain|hash|wallet_id|entry_type)
// The entry type keeps the gas fee companion entry of a transaction distinct
// from its main entry. Returns hex-encoded hash (64 characters).
func ComputeEntryID(chain domain.Chain, txHash, walletID string, entryType domain.EntryType) string {
	data := fmt.Sprintf("%s|%s|%s|%s", chain, txHash, walletID, entryType)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRawTxID computes a deterministic raw transaction ID using SHA256.
// Formula: SHA256(chain|hash|wallet_id|block_number)
func ComputeRawTxID(chain domain.Chain, txHash, walletID string, blockNumber int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", chain, txHash, walletID, blockNumber)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeGainEventID computes a deterministic gain event ID using SHA256.
// Formula: SHA256(scope|disposal_entry_id|lot_entry_id|fragment_index)
// The fragment index distinguishes multiple lots consumed by one disposal.
func ComputeGainEventID(scope domain.ScopeKey, disposalEntryID, lotEntryID string, fragmentIndex int) string {
	data := fmt.Sprintf("%s|%s|%s|%d", scope.String(), disposalEntryID, lotEntryID, fragmentIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeAccountID computes a deterministic account ID from its unique label.
func ComputeAccountID(label string) string {
	hash := sha256.Sum256([]byte(label))
	return hex.EncodeToString(hash[:])
}
