package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

// SeriesPoint is one stored velocity measurement used for charting.
type SeriesPoint struct {
	T       time.Time
	Ratio   float64
	TxCount int
}

const (
	chartWidth  = 800
	chartHeight = 220
)

var seriesColors = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b"}

type htmlToken struct {
	Symbol        string
	Supply        string
	Price         string
	SupplyChange  string
	VelocityRatio string
	TxCount       int
	UniqueWallets int
	Volume        string
	DuplicateTxs  int
	ForwardFilled bool
}

type htmlWindow struct {
	Token     string
	Start     string
	NetChange string
	Supply    string
	Obs       int
}

type htmlSeries struct {
	Token  string
	Color  string
	Points string // SVG polyline points
}

type htmlData struct {
	GeneratedAt string
	Tokens      []htmlToken
	Windows     []htmlWindow
	Series      []htmlSeries
	Flagged     []tracker.FlaggedChange
	Width       int
	Height      int
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Stablecoin Velocity Report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 6px 12px; text-align: right; }
th { background: #f5f5f5; }
td.sym, th.sym { text-align: left; }
.filled { color: #999; }
.legend span { margin-right: 1.5em; font-weight: bold; }
</style>
</head>
<body>
<h1>Stablecoin Velocity Report</h1>
<p>Generated at {{.GeneratedAt}}</p>

<h2>Supply Analysis</h2>
<table>
<tr><th class="sym">Token</th><th>Supply</th><th>Price</th><th>Supply Change</th></tr>
{{range .Tokens}}<tr{{if .ForwardFilled}} class="filled"{{end}}><td class="sym">{{.Symbol}}</td><td>{{.Supply}}</td><td>{{.Price}}</td><td>{{.SupplyChange}}</td></tr>
{{end}}</table>

{{if .Windows}}<h2>Supply Change by Window</h2>
<table>
<tr><th class="sym">Token</th><th>Window Start</th><th>Net Change</th><th>Closing Supply</th><th>Observations</th></tr>
{{range .Windows}}<tr><td class="sym">{{.Token}}</td><td>{{.Start}}</td><td>{{.NetChange}}</td><td>{{.Supply}}</td><td>{{.Obs}}</td></tr>
{{end}}</table>{{end}}

<h2>Velocity Analysis</h2>
<table>
<tr><th class="sym">Token</th><th>Velocity Ratio</th><th>Transactions</th><th>Unique Wallets</th><th>Volume</th><th>Duplicates</th></tr>
{{range .Tokens}}<tr><td class="sym">{{.Symbol}}</td><td>{{.VelocityRatio}}</td><td>{{.TxCount}}</td><td>{{.UniqueWallets}}</td><td>{{.Volume}}</td><td>{{.DuplicateTxs}}</td></tr>
{{end}}</table>

<h2>Velocity Ratio Over Time</h2>
<p class="legend">{{range .Series}}<span style="color: {{.Color}}">{{.Token}}</span>{{end}}</p>
<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" style="border: 1px solid #ccc">
{{range .Series}}<polyline fill="none" stroke="{{.Color}}" stroke-width="2" points="{{.Points}}" />
{{end}}</svg>

{{if .Flagged}}<h2>Significant Supply Changes</h2>
<table>
<tr><th>Time</th><th class="sym">Token</th><th>Change</th><th>Supply</th><th>Price</th></tr>
{{range .Flagged}}<tr><td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td><td class="sym">{{.Token}}</td><td>{{printf "%+.4f%%" .ChangePct}}</td><td>{{printf "%.2f" .Supply}}</td><td>{{printf "$%.4f" .Price}}</td></tr>
{{end}}</table>{{end}}
</body>
</html>
`))

// RenderHTML produces the HTML report: the same figures as the text report
// plus a velocity-over-time chart built from stored history.
func RenderHTML(r *tracker.Report, history map[string][]SeriesPoint) ([]byte, error) {
	data := htmlData{
		GeneratedAt: r.GeneratedAt.Format("2006-01-02 15:04:05"),
		Flagged:     r.Flagged,
		Width:       chartWidth,
		Height:      chartHeight,
	}

	for i, sym := range r.Tokens {
		tr, ok := r.Token(sym)
		if !ok {
			continue
		}
		change := "n/a"
		if !tr.Supply.First {
			change = FormatSignedPercent(tr.Supply.ChangePct)
		}
		data.Tokens = append(data.Tokens, htmlToken{
			Symbol:        sym,
			Supply:        FormatAmount(tr.Supply.Supply),
			Price:         FormatPrice(tr.Supply.Price),
			SupplyChange:  change,
			VelocityRatio: FormatRatio(tr.Velocity.Ratio),
			TxCount:       tr.Velocity.TxCount,
			UniqueWallets: tr.Velocity.UniqueWallets,
			Volume:        FormatAmount(tr.Velocity.Volume),
			DuplicateTxs:  tr.Velocity.DuplicateTxs,
			ForwardFilled: tr.Supply.ForwardFilled,
		})

		for _, wc := range tr.Windows {
			data.Windows = append(data.Windows, htmlWindow{
				Token:     sym,
				Start:     wc.WindowStart.Format("2006-01-02 15:04"),
				NetChange: FormatSignedPercent(wc.NetChangePct),
				Supply:    FormatAmount(wc.Supply),
				Obs:       wc.Observations,
			})
		}

		if points := history[sym]; len(points) > 1 {
			data.Series = append(data.Series, htmlSeries{
				Token:  sym,
				Color:  seriesColors[i%len(seriesColors)],
				Points: polyline(points, history),
			})
		}
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

// polyline scales a series into SVG coordinates. All series share one time
// axis and one ratio axis so the curves are comparable.
func polyline(points []SeriesPoint, all map[string][]SeriesPoint) string {
	tMin, tMax, rMax := bounds(all)
	tSpan := tMax.Sub(tMin).Seconds()
	if tSpan <= 0 {
		tSpan = 1
	}
	if rMax <= 0 {
		rMax = 1
	}

	const pad = 10.0
	var b strings.Builder
	for i, p := range points {
		x := pad + (float64(chartWidth)-2*pad)*p.T.Sub(tMin).Seconds()/tSpan
		y := float64(chartHeight) - pad - (float64(chartHeight)-2*pad)*p.Ratio/rMax
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}

func bounds(all map[string][]SeriesPoint) (tMin, tMax time.Time, rMax float64) {
	first := true
	for _, series := range all {
		for _, p := range series {
			if first {
				tMin, tMax = p.T, p.T
				first = false
			}
			if p.T.Before(tMin) {
				tMin = p.T
			}
			if p.T.After(tMax) {
				tMax = p.T
			}
			if p.Ratio > rMax {
				rMax = p.Ratio
			}
		}
	}
	return tMin, tMax, rMax
}
