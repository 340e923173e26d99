package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var line struct {
		Msg    string `json:"msg"`
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
		Bytes  int    `json:"bytes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v\n%s", err, buf.String())
	}
	if line.Msg != "http request" {
		t.Errorf("msg = %q", line.Msg)
	}
	if line.Method != http.MethodGet || line.Path != "/api/report" {
		t.Errorf("logged %s %s, want GET /api/report", line.Method, line.Path)
	}
	if line.Status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", line.Status, http.StatusTeapot)
	}
	if line.Bytes != len("short and stout") {
		t.Errorf("bytes = %d, want %d", line.Bytes, len("short and stout"))
	}
}
