package application

import (
	"context"
	"fmt"

	"tokenprices-service/internal/domain"

	"go.uber.org/zap"
)

// UsageLogger appends one usage row per price request. Failures are logged
// and never returned.
type UsageLogger struct {
	repo  UsageLogRepo
	clock Clock
	log   *zap.Logger
}

func NewUsageLogger(repo UsageLogRepo, clock Clock, log *zap.Logger) *UsageLogger {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UsageLogger{repo: repo, clock: clock, log: log}
}

func (u *UsageLogger) Record(ctx context.Context, e domain.UsageLogEntry) {
	if u == nil || u.repo == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = u.clock.Now()
	}
	defer func() {
		if r := recover(); r != nil {
			u.log.Error("usage_log.panic", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := u.repo.Append(ctx, e); err != nil {
		u.log.Warn("usage_log.append_failed",
			zap.String("provider", e.Provider),
			zap.Strings("symbols", e.Symbols),
			zap.Error(err),
		)
	}
}
