package report

import (
	"context"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/store"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

// HistorySource provides stored velocity measurements for charting.
type HistorySource interface {
	VelocityHistory(ctx context.Context, token string, since time.Time) ([]store.VelocityPoint, error)
}

// Publisher renders each cycle's report with the stored velocity history
// behind it. A nil history source produces chartless reports.
type Publisher struct {
	writer    *Writer
	history   HistorySource
	chartSpan time.Duration
}

func NewPublisher(w *Writer, history HistorySource, chartSpan time.Duration) *Publisher {
	if chartSpan <= 0 {
		chartSpan = 7 * 24 * time.Hour
	}
	return &Publisher{writer: w, history: history, chartSpan: chartSpan}
}

func (p *Publisher) Publish(ctx context.Context, r *tracker.Report) error {
	history := make(map[string][]SeriesPoint, len(r.Tokens))
	if p.history != nil {
		since := r.GeneratedAt.Add(-p.chartSpan)
		for _, sym := range r.Tokens {
			points, err := p.history.VelocityHistory(ctx, sym, since)
			if err != nil {
				// Chart data is best-effort; the report still renders.
				p.writer.logger.Warn("velocity history unavailable", "token", sym, "error", err)
				continue
			}
			series := make([]SeriesPoint, len(points))
			for i, pt := range points {
				series[i] = SeriesPoint{T: pt.MeasuredAt, Ratio: pt.Ratio, TxCount: pt.TxCount}
			}
			history[sym] = series
		}
	}
	return p.writer.Publish(ctx, r, history)
}
