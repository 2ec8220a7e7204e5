package application

import (
	"context"
	"time"

	"tokenprices-service/internal/domain"
)

// QuoteCache is the price_cache table. Get returns ErrNotFound for unknown symbols.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (domain.CachedQuote, error)
	Upsert(ctx context.Context, q domain.CachedQuote) error
}

type ExchangeRateRepo interface {
	Get(ctx context.Context, base, quote string) (domain.ExchangeRate, error)
	Upsert(ctx context.Context, r domain.ExchangeRate) error
}

type UsageLogRepo interface {
	Append(ctx context.Context, e domain.UsageLogEntry) error
}

type TokenRepo interface {
	ListActive(ctx context.Context) ([]domain.Token, error)
	UpdatePrice(ctx context.Context, id string, p domain.TokenPrice, at time.Time) error
}

// QuoteProvider is the external market-data API. One call per batch of ids.
type QuoteProvider interface {
	Name() string
	FetchQuotes(ctx context.Context, ids []int) ([]domain.ProviderQuote, error)
}

// MockQuoteSource synthesizes quotes when no API credential is configured.
type MockQuoteSource interface {
	Quote(symbol string) domain.ProviderQuote
}

// RateSource is the external exchange-rate API.
type RateSource interface {
	Fetch(ctx context.Context, base, quote string) (float64, error)
}

// RateResolver yields the USD to IDR rate. Neither method fails.
type RateResolver interface {
	Current(ctx context.Context) float64
	Peek(ctx context.Context) float64
}

// PriceSource resolves prices for a set of symbols.
type PriceSource interface {
	Prices(ctx context.Context, symbols []string, force bool) (map[string]domain.PriceResult, error)
}
