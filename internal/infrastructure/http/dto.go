package httpserver

import (
	"time"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"
)

// PriceEntry is one symbol in the crypto-prices payload.
type PriceEntry struct {
	USD       float64    `json:"usd"`
	IDR       float64    `json:"idr"`
	Change24h float64    `json:"change_24h"`
	Volume24h float64    `json:"volume_24h"`
	MarketCap float64    `json:"market_cap"`
	Cached    bool       `json:"cached"`
	Stale     bool       `json:"stale,omitempty"`
	Mock      bool       `json:"mock,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type PricesResponse struct {
	Success          bool                  `json:"success"`
	Data             map[string]PriceEntry `json:"data"`
	Timestamp        time.Time             `json:"timestamp"`
	USDToIDRRate     float64               `json:"usd_to_idr_rate"`
	Source           string                `json:"source"`
	CacheHit         bool                  `json:"cache_hit"`
	RefreshedSymbols []string              `json:"refreshed_symbols"`
	CachedSymbols    []string              `json:"cached_symbols"`
	APICallsSaved    int                   `json:"api_calls_saved"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

type TokenResult struct {
	TokenID   string  `json:"token_id"`
	Symbol    string  `json:"symbol"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	PriceUSD  float64 `json:"price_usd,omitempty"`
	PriceIDR  float64 `json:"price_idr,omitempty"`
	Change24h float64 `json:"change_24h,omitempty"`
}

type RefreshResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Total   int           `json:"total"`
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Results []TokenResult `json:"results"`
}

func toPriceEntry(r domain.PriceResult) PriceEntry {
	e := PriceEntry{
		USD:       r.Quote.PriceUSD,
		IDR:       r.Quote.PriceIDR,
		Change24h: r.Quote.Change24h,
		Volume24h: r.Quote.Volume24h,
		MarketCap: r.Quote.MarketCap,
		Cached:    r.Cached(),
		Stale:     r.Stale(),
		Mock:      r.Mock(),
		Error:     r.Reason,
	}
	if !r.Quote.UpdatedAt.IsZero() {
		at := r.Quote.UpdatedAt.UTC()
		e.UpdatedAt = &at
	}
	return e
}

// toPriceResult inverts toPriceEntry for a decoded payload.
func toPriceResult(symbol string, e PriceEntry) domain.PriceResult {
	q := domain.CachedQuote{
		Symbol:    symbol,
		PriceUSD:  e.USD,
		PriceIDR:  e.IDR,
		Change24h: e.Change24h,
		Volume24h: e.Volume24h,
		MarketCap: e.MarketCap,
	}
	if e.UpdatedAt != nil {
		q.UpdatedAt = *e.UpdatedAt
	}
	switch {
	case e.Stale:
		return domain.StaleFallback(q, e.Error)
	case e.Error != "" && !e.Cached:
		return domain.Unavailable(symbol)
	case e.Mock:
		return domain.MockData(q)
	case e.Cached:
		return domain.CacheHit(q)
	default:
		return domain.Refreshed(q)
	}
}

func toPricesResponse(resp application.PriceResponse) PricesResponse {
	out := PricesResponse{
		Success:          true,
		Data:             make(map[string]PriceEntry, len(resp.Data)),
		Timestamp:        resp.Timestamp.UTC(),
		USDToIDRRate:     resp.Rate,
		Source:           resp.Source,
		CacheHit:         resp.CacheHit(),
		RefreshedSymbols: nonNil(resp.RefreshedSymbols),
		CachedSymbols:    nonNil(resp.CachedSymbols),
		APICallsSaved:    resp.APICallsSaved(),
	}
	for sym, r := range resp.Data {
		out.Data[sym] = toPriceEntry(r)
	}
	return out
}

func toRefreshResponse(sum application.RefreshSummary) RefreshResponse {
	out := RefreshResponse{
		Success: true,
		Message: "Token prices updated",
		Total:   sum.Total,
		Updated: sum.Updated,
		Failed:  sum.Failed,
		Results: make([]TokenResult, 0, len(sum.Results)),
	}
	if sum.Total == 0 {
		out.Message = "No active tokens"
	}
	for _, r := range sum.Results {
		out.Results = append(out.Results, TokenResult{
			TokenID:   r.TokenID,
			Symbol:    r.Symbol,
			Success:   r.Success,
			Error:     r.Error,
			PriceUSD:  r.Price.PriceUSD,
			PriceIDR:  r.Price.PriceIDR,
			Change24h: r.Price.Change24h,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
