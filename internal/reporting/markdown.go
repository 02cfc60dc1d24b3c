package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Ledger Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Entity: %s | Mode: %s | Request: %s\n\n",
		r.Request.EntityID, r.Request.Mode, r.Request.ID))

	// Parse health
	sb.WriteString("## Parse Health\n\n")
	sb.WriteString("| Wallet | Chain | Total | Parsed | Ignored | Errored |\n")
	sb.WriteString("|--------|-------|-------|--------|---------|---------|\n")
	for _, w := range r.Wallets {
		label := w.Label
		if label == "" {
			label = w.WalletID
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d |\n",
			label, w.Chain, w.Stats.Total, w.Stats.Parsed, w.Stats.Ignored, w.Stats.Errored))
	}
	sb.WriteString("\n")

	// Error breakdown
	hasErrors := false
	for _, w := range r.Wallets {
		if len(w.Errors) > 0 {
			hasErrors = true
			break
		}
	}
	if hasErrors {
		sb.WriteString("### Errors by Type\n\n")
		sb.WriteString("| Wallet | Error Type | Unresolved | Resolved |\n")
		sb.WriteString("|--------|------------|------------|----------|\n")
		for _, w := range r.Wallets {
			for _, e := range w.Errors {
				sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d |\n",
					w.WalletID, e.Type, e.Unresolved, e.Resolved))
			}
		}
		sb.WriteString("\n")
	}

	// Gains
	sb.WriteString("## Realized Gains\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Events | %d |\n", r.Gains.EventCount))
	sb.WriteString(fmt.Sprintf("| Exempt Events | %d |\n", r.Gains.ExemptCount))
	sb.WriteString(fmt.Sprintf("| Total Proceeds (USD) | %s |\n", r.Gains.TotalProceeds.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total Cost Basis (USD) | %s |\n", r.Gains.TotalCost.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total Gain (USD) | %s |\n", r.Gains.TotalGain.StringFixed(2)))
	sb.WriteString("\n")

	if len(r.Gains.ScopeFailures) > 0 {
		sb.WriteString("### Halted Scopes\n\n")
		for _, s := range r.Gains.ScopeFailures {
			sb.WriteString(fmt.Sprintf("- %s\n", s))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
