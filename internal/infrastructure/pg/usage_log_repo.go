package pg

import (
	"context"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ application.UsageLogRepo = (*UsageLogRepo)(nil)

// UsageLogRepo only inserts; rows are never updated.
type UsageLogRepo struct{ db *DB }

func NewUsageLogRepo(db *DB) *UsageLogRepo { return &UsageLogRepo{db: db} }

func (r *UsageLogRepo) Append(ctx context.Context, e domain.UsageLogEntry) error {
	const ins = `
        INSERT INTO api_usage_logs(id, api_provider, endpoint, symbols_requested, success,
                                   error_message, response_time_ms, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	id := uuid.NewString()
	log := opLog("usage_log", "Append", ins, zap.String("id", id), zap.String("provider", e.Provider))

	var errMsg *string
	if e.Error != "" {
		errMsg = &e.Error
	}
	symbols := e.Symbols
	if symbols == nil {
		symbols = []string{}
	}
	_, err := r.db.Pool.Exec(ctx, ins,
		id, e.Provider, e.Endpoint, symbols, e.Success, errMsg, e.ResponseTimeMS, e.CreatedAt,
	)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Debug("sql.exec_success")
	return nil
}
