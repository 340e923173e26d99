package report

import (
	"fmt"
	"strings"

	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

// RenderText produces the consolidated plain-text report: supply analysis
// first, then velocity analysis, tokens in their configured order, then any
// flagged supply changes.
func RenderText(r *tracker.Report) string {
	var b strings.Builder

	b.WriteString("=== Stablecoin Analysis Consolidated Report ===\n")
	fmt.Fprintf(&b, "Generated at: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("=== Supply Analysis ===\n")
	any := false
	for _, sym := range r.Tokens {
		tr, ok := r.Token(sym)
		if !ok {
			continue
		}
		any = true
		fmt.Fprintf(&b, "%s Supply Metrics:\n", sym)
		fmt.Fprintf(&b, "  - Current Supply: %s\n", FormatAmount(tr.Supply.Supply))
		fmt.Fprintf(&b, "  - Current Price: %s\n", FormatPrice(tr.Supply.Price))
		if tr.Supply.First {
			b.WriteString("  - Supply Change: n/a (first observation)\n\n")
		} else {
			fmt.Fprintf(&b, "  - Supply Change: %s\n\n", FormatSignedPercent(tr.Supply.ChangePct))
		}
	}
	if !any {
		b.WriteString("Supply data not available yet\n\n")
	}

	if hasWindows(r) {
		b.WriteString("=== Supply Change by Window ===\n")
		for _, sym := range r.Tokens {
			tr, ok := r.Token(sym)
			if !ok || len(tr.Windows) == 0 {
				continue
			}
			fmt.Fprintf(&b, "%s:\n", sym)
			for _, wc := range tr.Windows {
				fmt.Fprintf(&b, "  %s | net change: %s | closing supply: %s (%d obs)\n",
					wc.WindowStart.Format("2006-01-02 15:04"),
					FormatSignedPercent(wc.NetChangePct),
					FormatAmount(wc.Supply),
					wc.Observations)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("=== Velocity Analysis ===\n")
	any = false
	for _, sym := range r.Tokens {
		tr, ok := r.Token(sym)
		if !ok {
			continue
		}
		any = true
		fmt.Fprintf(&b, "%s Velocity Metrics:\n", sym)
		fmt.Fprintf(&b, "  - Velocity Ratio: %s\n", FormatRatio(tr.Velocity.Ratio))
		fmt.Fprintf(&b, "  - Transaction Count: %d\n", tr.Velocity.TxCount)
		fmt.Fprintf(&b, "  - Unique Wallets: %d\n", tr.Velocity.UniqueWallets)
		fmt.Fprintf(&b, "  - Volume: %s\n", FormatAmount(tr.Velocity.Volume))
		fmt.Fprintf(&b, "  - Token Supply: %s\n", FormatAmount(tr.Velocity.Supply))
		fmt.Fprintf(&b, "  - Duplicate Transactions: %d\n\n", tr.Velocity.DuplicateTxs)
	}
	if !any {
		b.WriteString("Velocity data not available\n\n")
	}

	b.WriteString("=== Significant Supply Changes ===\n")
	if len(r.Flagged) == 0 {
		b.WriteString("No significant supply changes detected in the analyzed period.\n")
		return b.String()
	}
	for _, c := range r.Flagged {
		fmt.Fprintf(&b, "Time: %s\n", c.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "Token: %s\n", c.Token)
		fmt.Fprintf(&b, "Supply Change: %s\n", FormatPercent(c.ChangePct))
		fmt.Fprintf(&b, "Current Supply: %s\n", FormatAmount(c.Supply))
		fmt.Fprintf(&b, "Token Price: %s\n", FormatPrice(c.Price))
		b.WriteString(strings.Repeat("-", 30) + "\n")
	}
	return b.String()
}

func hasWindows(r *tracker.Report) bool {
	for _, sym := range r.Tokens {
		if tr, ok := r.Token(sym); ok && len(tr.Windows) > 0 {
			return true
		}
	}
	return false
}
