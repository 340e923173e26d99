package telegram

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stablewatch/velocity-monitor/internal/report"
	"github.com/stablewatch/velocity-monitor/internal/store"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

const telegramAPI = "https://api.telegram.org/bot"

// Reporter provides the latest cycle snapshot for the /report command.
type Reporter interface {
	LatestReport() *tracker.Report
}

type Bot struct {
	token    string
	store    *store.Store
	reporter Reporter
	logger   *slog.Logger
	client   *http.Client
	offset   int64
}

func NewBot(token string, s *store.Store, reporter Reporter, logger *slog.Logger) *Bot {
	return &Bot{
		token:    token,
		store:    s,
		reporter: reporter,
		logger:   logger,
		client:   &http.Client{Timeout: 40 * time.Second},
	}
}

// SendMessage sends a text message to a Telegram chat.
func (b *Bot) SendMessage(chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, _ := json.Marshal(payload)

	resp, err := b.client.Post(
		telegramAPI+b.token+"/sendMessage",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, errResp.Description)
	}
	return nil
}

// Run starts the long-polling loop for incoming Telegram messages.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot started")
	for {
		select {
		case <-ctx.Done():
			return
		default:
			b.poll(ctx)
		}
	}
}

func (b *Bot) poll(ctx context.Context) {
	url := fmt.Sprintf("%s%s/getUpdates?offset=%d&timeout=30", telegramAPI, b.token, b.offset)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		b.logger.Error("create poll request", "error", err)
		return
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("poll updates", "error", err)
		time.Sleep(5 * time.Second)
		return
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool `json:"ok"`
		Result []struct {
			UpdateID int64 `json:"update_id"`
			Message  *struct {
				Chat struct {
					ID int64 `json:"id"`
				} `json:"chat"`
				From struct {
					Username string `json:"username"`
				} `json:"from"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		b.logger.Error("decode updates", "error", err)
		return
	}

	for _, u := range result.Result {
		b.offset = u.UpdateID + 1
		if u.Message == nil {
			continue
		}

		chatID := u.Message.Chat.ID
		text := strings.TrimSpace(u.Message.Text)
		username := u.Message.From.Username

		switch {
		case text == "/start":
			b.handleStart(ctx, chatID, username)
		case text == "/help":
			b.handleHelp(chatID)
		case text == "/status":
			b.handleStatus(ctx, chatID)
		case text == "/report":
			b.handleReport(chatID)
		default:
			_ = b.SendMessage(chatID, "Unknown command. Send /help for available commands.")
		}
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, username string) {
	code := generateLinkCode()
	expiresAt := time.Now().Add(10 * time.Minute)

	if err := b.store.UpsertTelegramUser(ctx, chatID, username, code, expiresAt); err != nil {
		b.logger.Error("upsert telegram user", "error", err)
		_ = b.SendMessage(chatID, "❌ Error generating link code. Please try again.")
		return
	}

	msg := fmt.Sprintf("👋 Welcome to Stablecoin Velocity Monitor!\n\n"+
		"Your link code: <code>%s</code>\n\n"+
		"Enter this code on the dashboard to link your Telegram account and subscribe to supply, velocity and depeg alerts.\n\n"+
		"⏰ This code expires in 10 minutes.", code)
	_ = b.SendMessage(chatID, msg)
}

func (b *Bot) handleHelp(chatID int64) {
	msg := "🤖 <b>Stablecoin Velocity Monitor Bot</b>\n\n" +
		"Commands:\n" +
		"/start — Get a link code to connect your Telegram\n" +
		"/report — Get the latest consolidated report\n" +
		"/status — Check your subscription status\n" +
		"/help — Show this message\n\n" +
		"Manage subscriptions on the web dashboard."
	_ = b.SendMessage(chatID, msg)
}

func (b *Bot) handleReport(chatID int64) {
	if b.reporter == nil {
		_ = b.SendMessage(chatID, "Reporting is not available.")
		return
	}
	snap := b.reporter.LatestReport()
	if snap == nil {
		_ = b.SendMessage(chatID, "No report available yet. The first poll cycle is still running.")
		return
	}
	_ = b.SendMessage(chatID, "<pre>"+report.RenderText(snap)+"</pre>")
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	user, err := b.store.GetTelegramUser(ctx, chatID)
	if err != nil {
		_ = b.SendMessage(chatID, "You haven't linked your account yet. Send /start to get a link code.")
		return
	}

	if !user.Linked {
		_ = b.SendMessage(chatID, "Your account is registered but not linked yet. Send /start to get a new link code.")
		return
	}

	subs, err := b.store.ListSubscriptions(ctx, chatID)
	if err != nil {
		_ = b.SendMessage(chatID, "Error fetching subscriptions.")
		return
	}

	if len(subs) == 0 {
		_ = b.SendMessage(chatID, "✅ Account linked!\n\nYou have no active subscriptions. Visit the dashboard to subscribe to alerts.")
		return
	}

	events, _ := b.store.ListEvents(ctx)
	eventMap := make(map[int]store.Event)
	for _, e := range events {
		eventMap[e.ID] = e
	}

	msg := fmt.Sprintf("✅ Account linked! (@%s)\n\n📋 Active subscriptions:\n", user.TgUsername)
	for _, sub := range subs {
		ev := eventMap[sub.EventID]
		desc := ev.Description
		if desc == "" {
			desc = "Unknown event"
		}
		line := "• " + desc
		if ev.Name != "" {
			if n, err := b.store.CountSubscriptions(ctx, ev.Name); err == nil {
				line += fmt.Sprintf(" (%d subscribers)", n)
			}
		}
		msg += line + "\n"
	}
	if n, err := b.store.CountLinkedUsers(ctx); err == nil {
		msg += fmt.Sprintf("\n👥 %d linked accounts receive alerts from this bot.", n)
	}
	_ = b.SendMessage(chatID, msg)
}

func generateLinkCode() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}
