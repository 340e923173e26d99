package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/stablewatch/velocity-monitor/internal/store"
)

// Link codes are 3 random bytes hex-encoded by the bot's /start handler.
const linkCodeLength = 6

// LinkStatus reports whether a Telegram chat is linked to the dashboard,
// including the username once it is.
func LinkStatus(s *store.Store) http.HandlerFunc {
	type response struct {
		Linked   bool   `json:"linked"`
		Username string `json:"tg_username,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		chatIDStr := r.URL.Query().Get("tg_chat_id")
		if chatIDStr == "" {
			http.Error(w, `{"error":"tg_chat_id required"}`, http.StatusBadRequest)
			return
		}
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid tg_chat_id"}`, http.StatusBadRequest)
			return
		}

		resp := response{}
		if user, err := s.GetTelegramUser(r.Context(), chatID); err == nil {
			resp.Linked = user.Linked
			if user.Linked {
				resp.Username = user.TgUsername
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// LinkTelegram redeems a link code issued by the bot, connecting the chat to
// its alert subscriptions. Codes are matched case-insensitively since users
// retype them from the Telegram message.
func LinkTelegram(s *store.Store) http.HandlerFunc {
	type request struct {
		Code string `json:"code"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		code := strings.ToUpper(strings.TrimSpace(req.Code))
		if len(code) != linkCodeLength {
			http.Error(w, `{"error":"link code must be 6 characters"}`, http.StatusBadRequest)
			return
		}

		user, err := s.LinkByCode(r.Context(), code)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired link code"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(user)
	}
}

// UnlinkTelegram disconnects a chat and drops all of its alert subscriptions;
// the Telegram user record itself is kept so relinking is a single /start.
func UnlinkTelegram(s *store.Store) http.HandlerFunc {
	type request struct {
		TgChatID int64 `json:"tg_chat_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.TgChatID == 0 {
			http.Error(w, `{"error":"tg_chat_id required"}`, http.StatusBadRequest)
			return
		}

		if err := s.UnlinkTelegram(r.Context(), req.TgChatID); err != nil {
			http.Error(w, `{"error":"failed to unlink"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"unlinked": true})
	}
}
