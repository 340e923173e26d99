package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/config"
	"github.com/stablewatch/velocity-monitor/internal/report"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

// ReportSource is the slice of the engine the report handlers read from.
type ReportSource interface {
	LatestReport() *tracker.Report
}

// Report serves the latest cycle snapshot as JSON.
func Report(src ReportSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := src.LatestReport()
		if snap == nil {
			http.Error(w, `{"error":"no data available yet"}`, http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	}
}

// ReportText serves the latest consolidated plain-text report.
func ReportText(src ReportSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := src.LatestReport()
		if snap == nil {
			http.Error(w, "no data available yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(report.RenderText(snap)))
	}
}

// Tokens serves the configured token list and poll cadence.
func Tokens(tokens []config.Token, pollInterval time.Duration) http.HandlerFunc {
	type response struct {
		Tokens       []config.Token `json:"tokens"`
		PollInterval string         `json:"poll_interval"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{
			Tokens:       tokens,
			PollInterval: pollInterval.String(),
		})
	}
}
