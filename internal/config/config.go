package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	infisical "github.com/infisical/go-sdk"
)

type Config struct {
	Port           string
	DatabaseURL    string
	TelegramToken  string
	FrontendOrigin string
	RedisURL       string
	RedisPassword  string

	EthNodeURL       string
	CoinGeckoBaseURL string
	CoinGeckoAPIKey  string

	TokensFile string
	OutputDir  string
	EnablePDF  bool

	PollInterval   time.Duration
	ReportWindow   time.Duration
	VelocityWindow time.Duration
	// StatsRetention bounds how long stored velocity measurements are kept;
	// zero disables pruning.
	StatsRetention time.Duration

	// ChangeThresholdPct flags any supply move at or above this magnitude.
	// The default is small enough to catch effectively any real change.
	ChangeThresholdPct float64
	VelocityAlertRatio float64
	DepegThresholdPct  float64
}

func Load() Config {
	cfg := Config{
		Port:           envOr("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		FrontendOrigin: envOr("FRONTEND_ORIGIN", "*"),
		RedisURL:       envOr("REDIS_URL", "redis://localhost:6379/0"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),

		EthNodeURL:       os.Getenv("ETH_NODE_URL"),
		CoinGeckoBaseURL: envOr("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:  os.Getenv("COINGECKO_API_KEY"),

		TokensFile: os.Getenv("TOKENS_FILE"),
		OutputDir:  envOr("OUTPUT_DIR", "data"),
		EnablePDF:  envOr("ENABLE_PDF", "") == "true",

		PollInterval:   durationOr("POLL_INTERVAL", 15*time.Minute),
		ReportWindow:   durationOr("REPORT_WINDOW", 2*time.Hour),
		VelocityWindow: durationOr("VELOCITY_WINDOW", 24*time.Hour),
		StatsRetention: durationOr("STATS_RETENTION", 30*24*time.Hour),

		ChangeThresholdPct: floatOr("CHANGE_THRESHOLD_PCT", 0.0001),
		VelocityAlertRatio: floatOr("VELOCITY_ALERT_RATIO", 1.0),
		DepegThresholdPct:  floatOr("DEPEG_THRESHOLD_PCT", 1.0),
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	return cfg
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL", "https://app.infisical.com")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	secrets := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &cfg.TelegramToken,
		"REDIS_PASSWORD":     &cfg.RedisPassword,
		"ETH_NODE_URL":       &cfg.EthNodeURL,
		"COINGECKO_API_KEY":  &cfg.CoinGeckoAPIKey,
	}

	for key, target := range secrets {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func floatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}
