package domain

import "time"

// Provider identifiers written to the usage log and echoed as response source.
const (
	ProviderCache = "cache"
	ProviderMock  = "mock-data"
	ProviderError = "error"
	SourceMixed   = "mixed"
)

// EndpointCryptoPrices names the price endpoint in usage rows.
const EndpointCryptoPrices = "crypto-prices"

// UsageLogEntry is an append-only audit record of one price request.
type UsageLogEntry struct {
	Provider       string
	Endpoint       string
	Symbols        []string
	Success        bool
	Error          string
	ResponseTimeMS int64
	CreatedAt      time.Time
}
