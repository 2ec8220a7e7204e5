package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRefreshEvery    = 15 * time.Minute
	DefaultIdempotencyTTL  = 24 * time.Hour
	DefaultPGMaxConns      = 10
	DefaultPGMinConns      = 1
	DefaultRedisKeyPrefix  = "price_cache:"
)
