package report

import (
	"strconv"

	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

// CSVHeader returns the column names for the historical log: a timestamp
// followed by a fixed block of columns per configured token.
func CSVHeader(tokens []string) []string {
	header := []string{"timestamp"}
	for _, sym := range tokens {
		header = append(header,
			sym+"_supply",
			sym+"_price",
			sym+"_supply_change",
			sym+"_tx_count",
			sym+"_unique_wallets",
			sym+"_volume",
			sym+"_velocity_ratio",
			sym+"_duplicate_txs",
		)
	}
	return header
}

// CSVRow flattens one report into a row matching CSVHeader for the same
// token list. The row always iterates the configured tokens, not the
// snapshot's, so a token absent from one cycle leaves its columns empty
// instead of shifting the rest.
func CSVRow(r *tracker.Report, tokens []string) []string {
	row := []string{r.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")}
	for _, sym := range tokens {
		tr, ok := r.Token(sym)
		if !ok {
			row = append(row, "", "", "", "", "", "", "", "")
			continue
		}
		row = append(row,
			formatFloat(tr.Supply.Supply),
			formatFloat(tr.Supply.Price),
			formatFloat(tr.Supply.ChangePct),
			strconv.Itoa(tr.Velocity.TxCount),
			strconv.Itoa(tr.Velocity.UniqueWallets),
			formatFloat(tr.Velocity.Volume),
			formatFloat(tr.Velocity.Ratio),
			strconv.Itoa(tr.Velocity.DuplicateTxs),
		)
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
