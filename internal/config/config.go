package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DebankURL            string
	DebankAccessKey      string
	DebankRetryMax       int
	DebankRetryBaseDelay time.Duration

	DatabaseURL string

	SpreadsheetID      string
	GoogleCredentials  string
	WalletSheet        string
	CategorySheet      string
	OffChainSheet      string
	HistorySheet       string
	WalletHistorySheet string

	DuneURL     string
	DuneAPIKey  string
	DuneQueryID string

	FetchCacheTTL   time.Duration
	RefreshInterval time.Duration
	HTTPPort        string
	AdminAPIKey     string
}

// Load reads configuration from environment variables with sensible defaults.
// DATABASE_URL is optional: without it snapshots fall back to the Sheets
// repository.
func Load() Config {
	return Config{
		DebankURL:            envOrDefault("DEBANK_URL", "https://pro-openapi.debank.com"),
		DebankAccessKey:      envOrDefaultWarn("DEBANK_ACCESS_KEY", ""),
		DebankRetryMax:       envOrDefaultInt("DEBANK_RETRY_MAX", 3),
		DebankRetryBaseDelay: envOrDefaultDuration("DEBANK_RETRY_BASE_DELAY", 250*time.Millisecond),

		DatabaseURL: envOrDefault("DATABASE_URL", ""),

		SpreadsheetID:      envOrDefaultWarn("SHEET_ID", ""),
		GoogleCredentials:  envOrDefaultWarn("GOOGLE_CREDENTIALS_JSON", ""),
		WalletSheet:        envOrDefault("WALLET_SHEET", "liquid_vaults"),
		CategorySheet:      envOrDefault("CATEGORY_SHEET", "token_categories"),
		OffChainSheet:      envOrDefault("OFFCHAIN_SHEET", "liquid_vaults_offchain"),
		HistorySheet:       envOrDefault("HISTORY_SHEET", "liquid_vaults_history"),
		WalletHistorySheet: envOrDefault("WALLET_HISTORY_SHEET", "liquid_vaults_wallets"),

		DuneURL:     envOrDefault("DUNE_URL", "https://api.dune.com"),
		DuneAPIKey:  envOrDefault("DUNE_API_KEY", ""),
		DuneQueryID: envOrDefault("DUNE_QUERY_ID", ""),

		FetchCacheTTL:   envOrDefaultDuration("FETCH_CACHE_TTL", 5*time.Minute),
		RefreshInterval: envOrDefaultDuration("REFRESH_INTERVAL", 1*time.Hour),
		HTTPPort:        envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:     envOrDefault("ADMIN_API_KEY", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
