package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all runtime configuration for the finance server and CLI.
type Config struct {
	Port            int
	LogLevel        string
	ShutdownTimeout time.Duration

	StoreDriver string // "sqlite" or "postgres"
	DatabaseURL string
	SQLitePath  string

	JWTSecret    string
	TokenTTL     time.Duration
	StartingCash decimal.Decimal

	QuoteSource     string // "static" or "http"
	QuoteURL        string
	QuoteAPIKey     string
	QuoteSymbolPath string
	QuoteNamePath   string
	QuotePricePath  string
	QuoteStatic     string
	QuoteTimeout    time.Duration
	QuoteCacheTTL   time.Duration
	QuoteRateLimit  float64
}

// Load reads a .env file if present, then the environment, applies defaults
// and validates values. It returns an error naming the first invalid variable.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	storeDriver := getStr("STORE_DRIVER", "sqlite")
	databaseURL := getStr("DATABASE_URL", "")
	switch storeDriver {
	case "sqlite":
	case "postgres":
		if databaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: sqlite, postgres", storeDriver)
	}

	tokenTTL, err := getDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	startingCash, err := getDecimal("STARTING_CASH", decimal.RequireFromString("10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if startingCash.IsNegative() {
		return nil, fmt.Errorf("invalid STARTING_CASH: must not be negative")
	}

	quoteSource := getStr("QUOTE_SOURCE", "static")
	if quoteSource != "static" && quoteSource != "http" {
		return nil, fmt.Errorf("invalid QUOTE_SOURCE: %q, must be one of: static, http", quoteSource)
	}

	quoteTimeout, err := getDuration("QUOTE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}

	quoteCacheTTL, err := getDuration("QUOTE_CACHE_TTL", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_CACHE_TTL: %w", err)
	}

	quoteRateLimit, err := getFloat("QUOTE_RATE_LIMIT", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_RATE_LIMIT: %w", err)
	}

	cfg := &Config{
		Port:            port,
		LogLevel:        logLevel,
		ShutdownTimeout: shutdownTimeout,
		StoreDriver:     storeDriver,
		DatabaseURL:     databaseURL,
		SQLitePath:      getStr("SQLITE_PATH", "finance.db"),
		JWTSecret:       getStr("JWT_SECRET", defaultJWTSecret),
		TokenTTL:        tokenTTL,
		StartingCash:    startingCash,
		QuoteSource:     quoteSource,
		QuoteURL:        getStr("QUOTE_URL", ""),
		QuoteAPIKey:     getStr("QUOTE_API_KEY", ""),
		QuoteSymbolPath: getStr("QUOTE_SYMBOL_PATH", ""),
		QuoteNamePath:   getStr("QUOTE_NAME_PATH", ""),
		QuotePricePath:  getStr("QUOTE_PRICE_PATH", ""),
		QuoteStatic:     getStr("QUOTE_STATIC", "AAPL:150.00:Apple Inc.,GOOG:2800.00:Alphabet Inc.,MSFT:310.00:Microsoft Corporation,NFLX:450.00:Netflix Inc."),
		QuoteTimeout:    quoteTimeout,
		QuoteCacheTTL:   quoteCacheTTL,
		QuoteRateLimit:  quoteRateLimit,
	}
	if cfg.JWTSecret == defaultJWTSecret {
		slog.Warn("using default insecure JWT_SECRET, set JWT_SECRET for production")
	}
	return cfg, nil
}

func getStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("must not be negative, got %v", f)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", d)
	}
	return d, nil
}

func getDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	return decimal.NewFromString(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
