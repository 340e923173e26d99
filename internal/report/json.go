package report

import (
	"encoding/json"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

// TokenSummary is the per-token slice of the JSON summary file.
type TokenSummary struct {
	Supply        float64 `json:"supply"`
	Price         float64 `json:"price"`
	SupplyChange  float64 `json:"supply_change_pct"`
	ForwardFilled bool    `json:"forward_filled,omitempty"`
	TxCount       int     `json:"transaction_count"`
	UniqueWallets int     `json:"unique_wallets"`
	Volume        float64 `json:"volume"`
	VelocityRatio float64 `json:"velocity_ratio"`
	DuplicateTxs  int     `json:"duplicate_txs"`
}

// Summary flattens a report into the JSON summary object keyed by token
// symbol. Values are the raw snapshot numbers; formatting is left to
// consumers.
func Summary(r *tracker.Report) map[string]TokenSummary {
	out := make(map[string]TokenSummary, len(r.ByToken))
	for _, sym := range r.Tokens {
		tr, ok := r.Token(sym)
		if !ok {
			continue
		}
		out[sym] = TokenSummary{
			Supply:        tr.Supply.Supply,
			Price:         tr.Supply.Price,
			SupplyChange:  tr.Supply.ChangePct,
			ForwardFilled: tr.Supply.ForwardFilled,
			TxCount:       tr.Velocity.TxCount,
			UniqueWallets: tr.Velocity.UniqueWallets,
			Volume:        tr.Velocity.Volume,
			VelocityRatio: tr.Velocity.Ratio,
			DuplicateTxs:  tr.Velocity.DuplicateTxs,
		}
	}
	return out
}

type jsonSummaryFile struct {
	CycleID     string                  `json:"cycle_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Tokens      map[string]TokenSummary `json:"tokens"`
}

// RenderJSON produces the summary file contents for a report.
func RenderJSON(r *tracker.Report) ([]byte, error) {
	return json.MarshalIndent(jsonSummaryFile{
		CycleID:     r.CycleID,
		GeneratedAt: r.GeneratedAt,
		Tokens:      Summary(r),
	}, "", "  ")
}
