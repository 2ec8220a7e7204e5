package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	infraconfig "tokenprices-service/internal/infrastructure/config"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	LogFile  string
	// API
	Port         string
	DatabaseURL  string
	CacheBackend string
	AppBaseURL   string
	// Market data
	CMCAPIKey       string
	CMCAPIBase      string
	QuoteAPIRPS     float64
	RateAPIBase     string
	SymbolsFile     string
	SingleFlight    bool
	HTTPTimeout     time.Duration
	ShutdownTimeout time.Duration
	// Worker
	TokenRefreshEvery time.Duration
	// Redis (idempotency, optional quote cache)
	IdempotencyBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTTL           time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func floatDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func boolDef(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func msDef(key string, def time.Duration) time.Duration {
	defMS := int(def / time.Millisecond)
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(defMS)), defMS)) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		Port:               getEnv("PORT", infraconfig.DefaultHTTPPort),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CacheBackend:       strings.ToLower(getEnv("CACHE_BACKEND", "pg")),
		AppBaseURL:         strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
		CMCAPIKey:          getEnv("CMC_API_KEY", ""),
		CMCAPIBase:         getEnv("CMC_API_BASE", "https://pro-api.coinmarketcap.com"),
		QuoteAPIRPS:        floatDef(getEnv("QUOTE_API_RPS", "0"), 0),
		RateAPIBase:        getEnv("EXCHANGE_RATE_API_BASE", "https://api.exchangerate-api.com"),
		SymbolsFile:        getEnv("SYMBOLS_FILE", ""),
		SingleFlight:       boolDef(getEnv("PRICE_SINGLEFLIGHT", "false"), false),
		HTTPTimeout:        msDef("HTTP_TIMEOUT_MS", infraconfig.DefaultHTTPTimeout),
		ShutdownTimeout:    msDef("SHUTDOWN_TIMEOUT_MS", infraconfig.DefaultShutdownTimeout),
		TokenRefreshEvery:  msDef("TOKEN_REFRESH_EVERY_MS", infraconfig.DefaultRefreshEvery),
		IdempotencyBackend: strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", "none")),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:           msDef("IDEMPOTENCY_TTL_MS", infraconfig.DefaultIdempotencyTTL),
	}
}

// MockMode reports whether no market-data credential is configured.
func (c Config) MockMode() bool { return c.CMCAPIKey == "" }
