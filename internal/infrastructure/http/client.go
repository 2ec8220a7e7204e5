package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"
	"tokenprices-service/internal/infrastructure/httpx"
)

var _ application.PriceSource = (*PriceClient)(nil)

// PriceClient calls a remote crypto-prices endpoint. The bulk updater uses it
// when prices are served by another deployment.
type PriceClient struct {
	BaseURL string
	Client  *httpx.Client
}

// NewPriceClient retries 5xx and transport failures with backoff.
func NewPriceClient(baseURL string, hc *http.Client) *PriceClient {
	return &PriceClient{BaseURL: strings.TrimRight(baseURL, "/"), Client: &httpx.Client{HTTP: hc, Retry: true}}
}

func (c *PriceClient) Prices(ctx context.Context, symbols []string, force bool) (map[string]domain.PriceResult, error) {
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	if force {
		q.Set("force", "true")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/crypto-prices?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("price client: create request: %w", err)
	}
	client := c.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body PricesResponse
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("price client: %w", err)
	}
	if !body.Success {
		return nil, fmt.Errorf("price client: unsuccessful response")
	}
	out := make(map[string]domain.PriceResult, len(body.Data))
	for sym, e := range body.Data {
		out[sym] = toPriceResult(sym, e)
	}
	return out, nil
}
