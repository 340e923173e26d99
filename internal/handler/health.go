package handler

import (
	"encoding/json"
	"net/http"

	"github.com/stablewatch/velocity-monitor/internal/store"
)

// Health is the liveness probe. It deliberately touches no dependency: the
// process being able to answer is the whole check.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "velocity-monitor",
		})
	}
}

// Ready is the readiness probe. The API is only useful with the database
// behind it, so readiness follows the ping.
func Ready(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
