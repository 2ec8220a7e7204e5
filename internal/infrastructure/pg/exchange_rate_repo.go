package pg

import (
	"context"
	"errors"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ application.ExchangeRateRepo = (*ExchangeRateRepo)(nil)

type ExchangeRateRepo struct{ db *DB }

func NewExchangeRateRepo(db *DB) *ExchangeRateRepo { return &ExchangeRateRepo{db: db} }

func (r *ExchangeRateRepo) Get(ctx context.Context, base, quote string) (domain.ExchangeRate, error) {
	const q = `
        SELECT base_currency, target_currency, rate::float8, last_updated
        FROM exchange_rate_cache WHERE base_currency=$1 AND target_currency=$2`
	log := opLog("exchange_rate", "Get", q, zap.String("base", base), zap.String("quote", quote))
	var out domain.ExchangeRate
	err := r.db.Pool.QueryRow(ctx, q, base, quote).Scan(&out.Base, &out.Quote, &out.Rate, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug("sql.query_no_rows")
		return domain.ExchangeRate{}, application.ErrNotFound
	}
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return domain.ExchangeRate{}, err
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}

func (r *ExchangeRateRepo) Upsert(ctx context.Context, rate domain.ExchangeRate) error {
	const up = `
        INSERT INTO exchange_rate_cache(base_currency, target_currency, rate, last_updated)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (base_currency, target_currency) DO UPDATE
          SET rate=EXCLUDED.rate, last_updated=EXCLUDED.last_updated`
	log := opLog("exchange_rate", "Upsert", up, zap.String("base", rate.Base), zap.String("quote", rate.Quote))
	if _, err := r.db.Pool.Exec(ctx, up, rate.Base, rate.Quote, rate.Rate, rate.UpdatedAt); err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Debug("sql.exec_success")
	return nil
}
