package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/config"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

type fakeReportSource struct {
	report *tracker.Report
}

func (f *fakeReportSource) LatestReport() *tracker.Report { return f.report }

func testReport() *tracker.Report {
	at := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	return &tracker.Report{
		CycleID:     "abc",
		GeneratedAt: at,
		Tokens:      []string{"FRAX"},
		ByToken: map[string]tracker.TokenReport{
			"FRAX": {
				Supply: tracker.SupplyObservation{
					Token: "FRAX", Timestamp: at, Supply: 319906477.62, Price: 0.9987, ChangePct: -0.14,
				},
				Velocity: tracker.VelocityMetric{TxCount: 14, Volume: 35145.69, Supply: 319906477.62, Ratio: 0.00011},
			},
		},
	}
}

func TestReportHandler(t *testing.T) {
	handler := Report(&fakeReportSource{report: testReport()})

	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var snap tracker.Report
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.CycleID != "abc" {
		t.Errorf("cycle id = %q", snap.CycleID)
	}
	tr, ok := snap.Token("FRAX")
	if !ok {
		t.Fatal("FRAX missing")
	}
	if tr.Velocity.TxCount != 14 {
		t.Errorf("tx count = %d", tr.Velocity.TxCount)
	}
}

func TestReportHandlerNoData(t *testing.T) {
	handler := Report(&fakeReportSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestReportTextHandler(t *testing.T) {
	handler := ReportText(&fakeReportSource{report: testReport()})

	req := httptest.NewRequest(http.MethodGet, "/api/report/text", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Errorf("content type = %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "=== Stablecoin Analysis Consolidated Report ===") {
		t.Errorf("unexpected body:\n%s", body)
	}
	if !strings.Contains(body, "319,906,477.62") {
		t.Error("body missing formatted supply")
	}
}

func TestTokensHandler(t *testing.T) {
	tokens := config.DefaultTokens()
	handler := Tokens(tokens, 15*time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/tokens", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Tokens       []config.Token `json:"tokens"`
		PollInterval string         `json:"poll_interval"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Tokens) != len(tokens) {
		t.Errorf("got %d tokens, want %d", len(got.Tokens), len(tokens))
	}
	if got.PollInterval != "15m0s" {
		t.Errorf("poll interval = %q", got.PollInterval)
	}
}
