package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"record_id", "executed_at", "kind", "status", "target_id",
	"ticker", "amount", "fee_ticker", "fee", "tx_hash", "fail_reason",
}

// RenderCSV renders the records of a history, oldest first.
func RenderCSV(h *History) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range h.Records {
		row := []string{
			r.RecordID,
			strconv.FormatInt(r.ExecutedAt, 10),
			string(r.Kind),
			string(r.Status),
			r.TargetID,
			r.Ticker,
			r.Amount,
			r.FeeTicker,
			r.Fee,
			r.TxHash,
			r.FailReason,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}
