package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvOr(t *testing.T) {
	// Unset key returns fallback
	os.Unsetenv("TEST_ENVOR_KEY")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "default" {
		t.Errorf("envOr unset key = %q, want %q", got, "default")
	}

	// Set key returns value
	os.Setenv("TEST_ENVOR_KEY", "custom")
	defer os.Unsetenv("TEST_ENVOR_KEY")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "custom" {
		t.Errorf("envOr set key = %q, want %q", got, "custom")
	}

	// Empty string returns fallback
	os.Setenv("TEST_ENVOR_KEY", "")
	if got := envOr("TEST_ENVOR_KEY", "fallback"); got != "fallback" {
		t.Errorf("envOr empty key = %q, want %q", got, "fallback")
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "DATABASE_URL", "TELEGRAM_BOT_TOKEN", "FRONTEND_ORIGIN",
		"REDIS_URL", "REDIS_PASSWORD", "ETH_NODE_URL", "COINGECKO_API_KEY",
		"POLL_INTERVAL", "REPORT_WINDOW", "VELOCITY_WINDOW", "STATS_RETENTION",
		"CHANGE_THRESHOLD_PCT", "INFISICAL_CLIENT_ID", "INFISICAL_CLIENT_SECRET",
	} {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.PollInterval != 15*time.Minute {
		t.Errorf("PollInterval = %v, want 15m", cfg.PollInterval)
	}
	if cfg.ReportWindow != 2*time.Hour {
		t.Errorf("ReportWindow = %v, want 2h", cfg.ReportWindow)
	}
	if cfg.VelocityWindow != 24*time.Hour {
		t.Errorf("VelocityWindow = %v, want 24h", cfg.VelocityWindow)
	}
	if cfg.StatsRetention != 30*24*time.Hour {
		t.Errorf("StatsRetention = %v, want 720h", cfg.StatsRetention)
	}
	if cfg.ChangeThresholdPct != 0.0001 {
		t.Errorf("ChangeThresholdPct = %v, want 0.0001", cfg.ChangeThresholdPct)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("DATABASE_URL", "postgres://test")
	os.Setenv("POLL_INTERVAL", "5m")
	os.Setenv("CHANGE_THRESHOLD_PCT", "0.5")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("POLL_INTERVAL")
		os.Unsetenv("CHANGE_THRESHOLD_PCT")
	}()

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.DatabaseURL != "postgres://test" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://test")
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Errorf("PollInterval = %v, want 5m", cfg.PollInterval)
	}
	if cfg.ChangeThresholdPct != 0.5 {
		t.Errorf("ChangeThresholdPct = %v, want 0.5", cfg.ChangeThresholdPct)
	}
}

func TestDurationOrInvalid(t *testing.T) {
	os.Setenv("TEST_DURATION_KEY", "not-a-duration")
	defer os.Unsetenv("TEST_DURATION_KEY")

	if got := durationOr("TEST_DURATION_KEY", time.Minute); got != time.Minute {
		t.Errorf("durationOr invalid = %v, want fallback 1m", got)
	}
}

func TestDefaultTokens(t *testing.T) {
	tokens := DefaultTokens()
	if len(tokens) != 4 {
		t.Fatalf("len(DefaultTokens) = %d, want 4", len(tokens))
	}
	if tokens[0].Symbol != "FRAX" || tokens[1].Symbol != "DAI" {
		t.Errorf("token order = %s, %s, want FRAX, DAI", tokens[0].Symbol, tokens[1].Symbol)
	}
	for _, tok := range tokens {
		if tok.Contract == "" || tok.CoinGeckoID == "" {
			t.Errorf("token %s missing contract or coingecko id", tok.Symbol)
		}
	}
}

func TestLoadTokensEmptyPath(t *testing.T) {
	tokens, err := LoadTokens("")
	if err != nil {
		t.Fatalf("LoadTokens(\"\") error: %v", err)
	}
	if len(tokens) != len(DefaultTokens()) {
		t.Errorf("len = %d, want %d", len(tokens), len(DefaultTokens()))
	}
}

func TestLoadTokensFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.yaml")
	content := `tokens:
  - symbol: TEST
    coingecko_id: test-coin
    contract: "0xabc"
  - symbol: OTHER
    coingecko_id: other-coin
    contract: "0xdef"
    decimals: 6
    peg_currency: EUR
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tokens, err := LoadTokens(path)
	if err != nil {
		t.Fatalf("LoadTokens error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("len = %d, want 2", len(tokens))
	}
	// Defaults applied
	if tokens[0].Decimals != 18 {
		t.Errorf("TEST decimals = %d, want 18", tokens[0].Decimals)
	}
	if tokens[0].PegCurrency != "USD" {
		t.Errorf("TEST peg currency = %q, want USD", tokens[0].PegCurrency)
	}
	if tokens[1].Decimals != 6 {
		t.Errorf("OTHER decimals = %d, want 6", tokens[1].Decimals)
	}
	if tokens[1].PegCurrency != "EUR" {
		t.Errorf("OTHER peg currency = %q, want EUR", tokens[1].PegCurrency)
	}
}

func TestLoadTokensMissingSymbol(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.yaml")
	if err := os.WriteFile(path, []byte("tokens:\n  - coingecko_id: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTokens(path); err == nil {
		t.Error("expected error for entry without symbol, got nil")
	}
}
