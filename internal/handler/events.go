package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/stablewatch/velocity-monitor/internal/store"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

func ListEvents(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := s.ListEvents(r.Context())
		if err != nil {
			http.Error(w, `{"error":"failed to list events"}`, http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []store.Event{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(events)
	}
}

// FlaggedChanges serves the most recent flagged supply changes.
func FlaggedChanges(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}

		changes, err := s.ListFlaggedChanges(r.Context(), limit)
		if err != nil {
			http.Error(w, `{"error":"failed to list flagged changes"}`, http.StatusInternalServerError)
			return
		}
		if changes == nil {
			changes = []tracker.FlaggedChange{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(changes)
	}
}
