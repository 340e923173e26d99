package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stablewatch/velocity-monitor/internal/config"
	"github.com/stablewatch/velocity-monitor/internal/dedup"
	"github.com/stablewatch/velocity-monitor/internal/handler"
	"github.com/stablewatch/velocity-monitor/internal/middleware"
	"github.com/stablewatch/velocity-monitor/internal/report"
	"github.com/stablewatch/velocity-monitor/internal/source"
	"github.com/stablewatch/velocity-monitor/internal/store"
	"github.com/stablewatch/velocity-monitor/internal/telegram"
	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}

	tokens, err := config.LoadTokens(cfg.TokensFile)
	if err != nil {
		logger.Error("failed to load token config", "error", err)
		os.Exit(1)
	}
	symbols := make([]string, len(tokens))
	for i, t := range tokens {
		symbols[i] = t.Symbol
	}
	logger.Info("tracking tokens", "tokens", symbols)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureTokenEvents(ctx, symbols); err != nil {
		logger.Error("failed to seed alert events", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected and migrated")

	// Redis dedup (retry up to 30s for ExternalSecret to sync)
	var dd *dedup.Deduplicator
	for i := 0; i < 6; i++ {
		dd, err = dedup.New(cfg.RedisURL, cfg.RedisPassword)
		if err == nil {
			break
		}
		logger.Warn("redis not ready, retrying...", "attempt", i+1, "error", err)
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		logger.Error("failed to connect to redis after retries", "error", err)
		os.Exit(1)
	}
	defer dd.Close()
	logger.Info("redis connected for alert dedup")

	// Data sources
	gecko := source.NewCoinGecko(source.NewClient(logger), cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey)
	var chain tracker.ChainSource
	if cfg.EthNodeURL != "" {
		chain = source.NewEthRPC(source.NewUnthrottledClient(logger), cfg.EthNodeURL, logger)
	} else {
		logger.Warn("ETH_NODE_URL not set, velocity tracking disabled")
	}

	// Report outputs
	writer := report.NewWriter(cfg.OutputDir, symbols, cfg.EnablePDF, logger)
	publisher := report.NewPublisher(writer, db, 7*24*time.Hour)

	// Poll engine and Telegram bot reference each other, so the bot variable
	// is captured before it is constructed.
	var bot *telegram.Bot
	engine := tracker.NewEngine(tracker.EngineOpts{
		Tokens:    tokens,
		Supply:    gecko,
		Chain:     chain,
		Store:     db,
		Dedup:     dd,
		Publisher: publisher,
		Alert: func(chatID int64, msg string) error {
			return bot.SendMessage(chatID, msg)
		},
		Logger: logger,
		Config: cfg,
	})
	bot = telegram.NewBot(cfg.TelegramToken, db, engine, logger)

	// Start background goroutines
	go bot.Run(ctx)
	go engine.Run(ctx)

	// HTTP routes
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(db))

	r.Route("/api", func(r chi.Router) {
		r.Get("/report", handler.Report(engine))
		r.Get("/report/text", handler.ReportText(engine))
		r.Get("/tokens", handler.Tokens(tokens, cfg.PollInterval))
		r.Get("/history", handler.History(db))
		r.Get("/velocity", handler.VelocityHistory(db))
		r.Get("/changes", handler.FlaggedChanges(db))
		r.Get("/events", handler.ListEvents(db))
		r.Get("/link/status", handler.LinkStatus(db))
		r.Post("/link", handler.LinkTelegram(db))
		r.Post("/unlink", handler.UnlinkTelegram(db))
		r.Get("/subscriptions", handler.ListSubscriptions(db))
		r.Post("/subscriptions", handler.Subscribe(db, cfg.ChangeThresholdPct))
		r.Put("/subscriptions/{id}", handler.UpdateSubscription(db))
		r.Delete("/subscriptions/{id}", handler.Unsubscribe(db))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
