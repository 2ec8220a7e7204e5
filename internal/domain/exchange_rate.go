package domain

import "time"

const (
	CurrencyUSD = "USD"
	CurrencyIDR = "IDR"

	// RateFreshness bounds how long a cached exchange rate is reused.
	RateFreshness = 4 * time.Hour
	// FallbackUSDToIDR is used when no fresh rate is cached and the rate API fails.
	FallbackUSDToIDR = 15800.0
)

type ExchangeRate struct {
	Base      string
	Quote     string
	Rate      float64
	UpdatedAt time.Time
}

func (r ExchangeRate) IsFresh(now time.Time) bool {
	return now.Sub(r.UpdatedAt) < RateFreshness
}
