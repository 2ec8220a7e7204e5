package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"
	"tokenprices-service/internal/infrastructure/httpx"

	"golang.org/x/time/rate"
)

const (
	cmcQuotesLatestPath = "/v1/cryptocurrency/quotes/latest"
	cmcName             = "coinmarketcap"
)

var _ application.QuoteProvider = (*CoinMarketCap)(nil)

// CoinMarketCap fetches USD quotes for a batch of provider ids in one call.
type CoinMarketCap struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	// Limiter, when set, paces calls to the API.
	Limiter *rate.Limiter
}

func NewCoinMarketCap(baseURL, apiKey string, hc *http.Client, limiter *rate.Limiter) *CoinMarketCap {
	return &CoinMarketCap{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &httpx.Client{HTTP: hc, Token: apiKey},
		Limiter: limiter,
	}
}

type cmcQuotesResp struct {
	Status struct {
		ErrorCode    int     `json:"error_code"`
		ErrorMessage *string `json:"error_message"`
	} `json:"status"`
	Data map[string]cmcAsset `json:"data"`
}

type cmcAsset struct {
	ID     int                 `json:"id"`
	Symbol string              `json:"symbol"`
	Quote  map[string]cmcQuote `json:"quote"`
}

type cmcQuote struct {
	Price            float64 `json:"price"`
	Volume24h        float64 `json:"volume_24h"`
	PercentChange24h float64 `json:"percent_change_24h"`
	MarketCap        float64 `json:"market_cap"`
}

func (p *CoinMarketCap) Name() string { return cmcName }

func (p *CoinMarketCap) FetchQuotes(ctx context.Context, ids []int) ([]domain.ProviderQuote, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return nil, fmt.Errorf("coinmarketcap: missing configuration")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("coinmarketcap: rate limit: %w", err)
		}
	}

	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("coinmarketcap: invalid base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + cmcQuotesLatestPath
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.Itoa(id)
	}
	q := u.Query()
	q.Set("id", strings.Join(idStrs, ","))
	q.Set("convert", domain.CurrencyUSD)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("coinmarketcap: create request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", p.APIKey)

	client := p.Client
	if client == nil {
		client = &httpx.Client{Token: p.APIKey}
	}
	var body cmcQuotesResp
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("coinmarketcap: %w", err)
	}
	if body.Status.ErrorCode != 0 {
		msg := ""
		if body.Status.ErrorMessage != nil {
			msg = *body.Status.ErrorMessage
		}
		return nil, fmt.Errorf("coinmarketcap: error %d %s", body.Status.ErrorCode, msg)
	}

	out := make([]domain.ProviderQuote, 0, len(body.Data))
	for key, asset := range body.Data {
		usd, ok := asset.Quote[domain.CurrencyUSD]
		if !ok {
			continue
		}
		id := asset.ID
		if id == 0 {
			id, _ = strconv.Atoi(key)
		}
		out = append(out, domain.ProviderQuote{
			ProviderID: id,
			Symbol:     asset.Symbol,
			PriceUSD:   usd.Price,
			Change24h:  usd.PercentChange24h,
			Volume24h:  usd.Volume24h,
			MarketCap:  usd.MarketCap,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("coinmarketcap: %w", domain.ErrNoQuotes)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}
