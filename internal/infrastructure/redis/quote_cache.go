package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"
	"tokenprices-service/internal/infrastructure/logx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ application.QuoteCache = (*QuoteCache)(nil)

// QuoteCache keeps one JSON document per symbol under Prefix+SYMBOL.
// Keys carry no TTL; freshness is decided from UpdatedAt.
type QuoteCache struct {
	Client *redis.Client
	Prefix string
}

func NewQuoteCache(client *redis.Client, prefix string) *QuoteCache {
	return &QuoteCache{Client: client, Prefix: prefix}
}

type quoteDoc struct {
	Symbol    string    `json:"symbol"`
	PriceUSD  float64   `json:"price_usd"`
	PriceIDR  float64   `json:"price_idr"`
	Change24h float64   `json:"change_24h"`
	Volume24h float64   `json:"volume_24h"`
	MarketCap float64   `json:"market_cap"`
	UpdatedAt time.Time `json:"last_updated"`
}

func (c *QuoteCache) Get(ctx context.Context, symbol string) (domain.CachedQuote, error) {
	raw, err := c.Client.Get(ctx, c.Prefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CachedQuote{}, application.ErrNotFound
	}
	if err != nil {
		logx.L().Error("redis.get_failed", zap.String("symbol", symbol), zap.Error(err))
		return domain.CachedQuote{}, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	var d quoteDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.CachedQuote{}, fmt.Errorf("decode %s: %w", symbol, err)
	}
	return domain.CachedQuote{
		Symbol:    d.Symbol,
		PriceUSD:  d.PriceUSD,
		PriceIDR:  d.PriceIDR,
		Change24h: d.Change24h,
		Volume24h: d.Volume24h,
		MarketCap: d.MarketCap,
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func (c *QuoteCache) Upsert(ctx context.Context, q domain.CachedQuote) error {
	raw, err := json.Marshal(quoteDoc{
		Symbol:    q.Symbol,
		PriceUSD:  q.PriceUSD,
		PriceIDR:  q.PriceIDR,
		Change24h: q.Change24h,
		Volume24h: q.Volume24h,
		MarketCap: q.MarketCap,
		UpdatedAt: q.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", q.Symbol, err)
	}
	if err := c.Client.Set(ctx, c.Prefix+q.Symbol, raw, 0).Err(); err != nil {
		logx.L().Error("redis.set_failed", zap.String("symbol", q.Symbol), zap.Error(err))
		return fmt.Errorf("redis set %s: %w", q.Symbol, err)
	}
	return nil
}
