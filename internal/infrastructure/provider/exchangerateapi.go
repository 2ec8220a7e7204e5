package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/infrastructure/httpx"
)

const exchangeRateLatestPath = "/v4/latest/"

var _ application.RateSource = (*ExchangeRateAPI)(nil)

// ExchangeRateAPI reads conversion rates from a keyless latest-rates endpoint.
type ExchangeRateAPI struct {
	BaseURL string
	Client  *httpx.Client
}

func NewExchangeRateAPI(baseURL string, hc *http.Client) *ExchangeRateAPI {
	return &ExchangeRateAPI{BaseURL: baseURL, Client: &httpx.Client{HTTP: hc}}
}

type erLatestResp struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (p *ExchangeRateAPI) Fetch(ctx context.Context, base, quote string) (float64, error) {
	if p.BaseURL == "" {
		return 0, fmt.Errorf("exchangerate: missing base url")
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return 0, fmt.Errorf("exchangerate: invalid base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + exchangeRateLatestPath + url.PathEscape(base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("exchangerate: create request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body erLatestResp
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return 0, fmt.Errorf("exchangerate: %w", err)
	}
	r, ok := body.Rates[quote]
	if !ok {
		return 0, fmt.Errorf("exchangerate: missing rate for %s", quote)
	}
	if r <= 0 {
		return 0, fmt.Errorf("exchangerate: non-positive rate for %s", quote)
	}
	return r, nil
}
