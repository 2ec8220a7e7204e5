package pg

import (
	"context"
	"errors"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ application.QuoteCache = (*QuoteCacheRepo)(nil)

type QuoteCacheRepo struct{ db *DB }

func NewQuoteCacheRepo(db *DB) *QuoteCacheRepo { return &QuoteCacheRepo{db: db} }

func (r *QuoteCacheRepo) Get(ctx context.Context, symbol string) (domain.CachedQuote, error) {
	const q = `
        SELECT symbol, price_usd::float8, price_idr::float8, change_24h::float8,
               volume_24h::float8, market_cap::float8, last_updated
        FROM price_cache WHERE symbol=$1`
	log := opLog("price_cache", "Get", q, zap.String("symbol", symbol))
	var out domain.CachedQuote
	err := r.db.Pool.QueryRow(ctx, q, symbol).Scan(
		&out.Symbol, &out.PriceUSD, &out.PriceIDR, &out.Change24h,
		&out.Volume24h, &out.MarketCap, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug("sql.query_no_rows")
		return domain.CachedQuote{}, application.ErrNotFound
	}
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return domain.CachedQuote{}, err
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}

func (r *QuoteCacheRepo) Upsert(ctx context.Context, q domain.CachedQuote) error {
	const up = `
        INSERT INTO price_cache(symbol, price_usd, price_idr, change_24h, volume_24h, market_cap, last_updated)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (symbol) DO UPDATE
          SET price_usd=EXCLUDED.price_usd, price_idr=EXCLUDED.price_idr,
              change_24h=EXCLUDED.change_24h, volume_24h=EXCLUDED.volume_24h,
              market_cap=EXCLUDED.market_cap, last_updated=EXCLUDED.last_updated`
	log := opLog("price_cache", "Upsert", up, zap.String("symbol", q.Symbol))
	_, err := r.db.Pool.Exec(ctx, up,
		q.Symbol, q.PriceUSD, q.PriceIDR, q.Change24h, q.Volume24h, q.MarketCap, q.UpdatedAt,
	)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Debug("sql.exec_success")
	return nil
}
