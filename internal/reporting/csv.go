package reporting

import (
	"fmt"
	"strings"

	"chainledger/internal/domain"
)

// RenderGainsCSV renders realized gain events as CSV string.
func RenderGainsCSV(events []*domain.RealizedGainEvent) string {
	var sb strings.Builder

	// Header
	sb.WriteString("timestamp_ms,symbol,wallet_id,disposal_entry_id,lot_entry_id,")
	sb.WriteString("quantity,proceeds_usd,cost_basis_usd,gain_usd,exemption,mode\n")

	// Rows
	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			ev.Timestamp,
			ev.Symbol,
			ev.WalletID,
			ev.DisposalEntryID,
			ev.LotEntryID,
			ev.Quantity.String(),
			ev.ProceedsUSD.String(),
			ev.CostBasisUSD.String(),
			ev.GainUSD.String(),
			ev.Exemption,
			ev.Mode,
		))
	}

	return sb.String()
}

// RenderParseResultsCSV renders per-transaction parse outcomes as CSV string.
func RenderParseResultsCSV(results []ParseTestResult) string {
	var sb strings.Builder

	sb.WriteString("wallet_id,tx_hash,status,entry_type,splits,balanced,error_type,message,warnings\n")
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%t,%s,%q,%q\n",
			r.WalletID,
			r.TxHash,
			r.Status,
			r.EntryType,
			len(r.Splits),
			r.Balanced,
			r.ErrorType,
			r.Message,
			strings.Join(r.Warnings, "; "),
		))
	}

	return sb.String()
}
