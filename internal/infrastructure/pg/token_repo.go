package pg

import (
	"context"
	"fmt"
	"time"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ application.TokenRepo = (*TokenRepo)(nil)

type TokenRepo struct{ db *DB }

func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) ListActive(ctx context.Context) ([]domain.Token, error) {
	const q = `
        SELECT id::text, symbol, name, price_usd::float8, price_idr::float8,
               change_24h::float8, is_active, updated_at
        FROM tokens WHERE is_active ORDER BY symbol`
	log := opLog("token", "ListActive", q)
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Name, &t.PriceUSD, &t.PriceIDR, &t.Change24h, &t.Active, &t.UpdatedAt); err != nil {
			log.Error("sql.scan_failed", zap.Error(err))
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		log.Error("sql.rows_failed", zap.Error(err))
		return nil, err
	}
	log.Debug("sql.query_success", zap.Int("rows", len(out)))
	return out, nil
}

func (r *TokenRepo) UpdatePrice(ctx context.Context, id string, p domain.TokenPrice, at time.Time) error {
	const up = `
        UPDATE tokens SET price_usd=$2, price_idr=$3, change_24h=$4, updated_at=$5
        WHERE id=$1`
	log := opLog("token", "UpdatePrice", up, zap.String("id", id))
	tag, err := r.db.Pool.Exec(ctx, up, id, p.PriceUSD, p.PriceIDR, p.Change24h, at)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_no_rows")
		return fmt.Errorf("token %s: %w", id, application.ErrNotFound)
	}
	log.Debug("sql.exec_success")
	return nil
}

// Create inserts an active token and returns its id. Used for seeding.
func (r *TokenRepo) Create(ctx context.Context, symbol, name string) (string, error) {
	const ins = `
        INSERT INTO tokens(id, symbol, name)
        VALUES ($1, $2, $3)
        ON CONFLICT (symbol) DO UPDATE SET name=EXCLUDED.name
        RETURNING id::text`
	log := opLog("token", "Create", ins, zap.String("symbol", symbol))
	var id string
	if err := r.db.Pool.QueryRow(ctx, ins, uuid.NewString(), symbol, name).Scan(&id); err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return "", err
	}
	return id, nil
}
