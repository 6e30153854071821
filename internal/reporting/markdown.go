package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a history with its summary.
func RenderMarkdown(h *History) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Execution History: %s\n\n", h.ActorID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.UnixMilli(h.GeneratedAt).UTC().Format(time.RFC3339)))

	s := h.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Executions | %d |\n", s.Total))
	sb.WriteString(fmt.Sprintf("| Succeeded | %d |\n", s.Succeeded))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", s.Failed))
	sb.WriteString(fmt.Sprintf("| Transfers | %d |\n", s.Transfers))
	sb.WriteString(fmt.Sprintf("| Unlocks | %d |\n", s.Unlocks))
	sb.WriteString("\n")

	writeTotals(&sb, "Sent", s.Sent)
	writeTotals(&sb, "Fees Paid", s.FeesPaid)

	sb.WriteString("## Executions\n\n")
	if len(h.Records) == 0 {
		sb.WriteString("No executions recorded.\n")
		return sb.String()
	}
	sb.WriteString("| Time | Kind | Status | Amount | Fee | Target | Tx |\n")
	sb.WriteString("|------|------|--------|--------|-----|--------|----|\n")
	for _, r := range h.Records {
		amount := "-"
		if r.Amount != "" {
			amount = r.Amount + " " + r.Ticker
		}
		target := r.TargetID
		if target == "" {
			target = "-"
		}
		tx := r.TxHash
		if tx == "" {
			tx = "-"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s %s | %s | %s |\n",
			time.UnixMilli(r.ExecutedAt).UTC().Format(time.RFC3339),
			r.Kind, r.Status, amount, r.Fee, r.FeeTicker, target, tx))
	}
	return sb.String()
}

func writeTotals(sb *strings.Builder, title string, totals []TickerTotal) {
	if len(totals) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	for _, t := range totals {
		sb.WriteString(fmt.Sprintf("- %s %s\n", t.Amount, t.Ticker))
	}
	sb.WriteString("\n")
}
