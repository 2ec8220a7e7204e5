package domain

import "github.com/shopspring/decimal"

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundUSD rounds a USD price to 8 decimal places.
func RoundUSD(v float64) float64 { return round(v, 8) }

// RoundPercent rounds a percent change to 2 decimal places.
func RoundPercent(v float64) float64 { return round(v, 2) }

// RoundWhole rounds volume and market cap to an integer amount.
func RoundWhole(v float64) float64 { return round(v, 0) }

// ConvertUSD multiplies a USD amount by rate in fixed-point arithmetic.
func ConvertUSD(usd, rate float64) float64 {
	f, _ := decimal.NewFromFloat(usd).Mul(decimal.NewFromFloat(rate)).Float64()
	return f
}

// QuoteFromProvider applies the cache rounding rules to a provider quote.
func QuoteFromProvider(pq ProviderQuote, symbol string, rate float64) CachedQuote {
	usd := RoundUSD(pq.PriceUSD)
	return CachedQuote{
		Symbol:    symbol,
		PriceUSD:  usd,
		PriceIDR:  ConvertUSD(usd, rate),
		Change24h: RoundPercent(pq.Change24h),
		Volume24h: RoundWhole(pq.Volume24h),
		MarketCap: RoundWhole(pq.MarketCap),
	}
}
