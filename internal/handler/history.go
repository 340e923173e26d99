package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/store"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

const maxHistoryHours = 24 * 30

func historyWindow(r *http.Request) time.Duration {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxHistoryHours {
			hours = n
		}
	}
	return time.Duration(hours) * time.Hour
}

// History serves stored supply observations for one token.
func History(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, `{"error":"token required"}`, http.StatusBadRequest)
			return
		}

		obs, err := s.ObservationsSince(r.Context(), token, time.Now().Add(-historyWindow(r)))
		if err != nil {
			http.Error(w, `{"error":"failed to load history"}`, http.StatusInternalServerError)
			return
		}
		if obs == nil {
			obs = []tracker.SupplyObservation{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(obs)
	}
}

// VelocityHistory serves stored velocity measurements for one token.
func VelocityHistory(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, `{"error":"token required"}`, http.StatusBadRequest)
			return
		}

		points, err := s.VelocityHistory(r.Context(), token, time.Now().Add(-historyWindow(r)))
		if err != nil {
			http.Error(w, `{"error":"failed to load velocity history"}`, http.StatusInternalServerError)
			return
		}
		if points == nil {
			points = []store.VelocityPoint{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(points)
	}
}
