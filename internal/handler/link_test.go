package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	Health()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"service":"velocity-monitor"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestLinkTelegramRejectsBadInput(t *testing.T) {
	// Validation happens before any store access, so a nil store is safe here.
	h := LinkTelegram(nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"empty code", `{"code":""}`},
		{"short code", `{"code":"AB"}`},
		{"long code", `{"code":"ABCDEF12"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/link", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestUnlinkTelegramRequiresChatID(t *testing.T) {
	h := UnlinkTelegram(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/unlink", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLinkStatusRequiresChatID(t *testing.T) {
	h := LinkStatus(nil)
	for _, target := range []string{"/api/link/status", "/api/link/status?tg_chat_id=abc"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}
