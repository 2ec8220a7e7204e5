package domain

import "time"

// QuoteFreshness is how long a cached quote answers requests without a refresh.
const QuoteFreshness = time.Hour

// CachedQuote is the last known market price for one symbol.
type CachedQuote struct {
	Symbol    string
	PriceUSD  float64
	PriceIDR  float64
	Change24h float64
	Volume24h float64
	MarketCap float64
	UpdatedAt time.Time
}

// IsFresh reports whether the quote is younger than QuoteFreshness at now.
// A quote exactly at the boundary is stale.
func (q CachedQuote) IsFresh(now time.Time) bool {
	return now.Sub(q.UpdatedAt) < QuoteFreshness
}

// ProviderQuote is a quote as returned by the external market-data API, in USD.
type ProviderQuote struct {
	ProviderID int
	Symbol     string
	PriceUSD   float64
	Change24h  float64
	Volume24h  float64
	MarketCap  float64
}
