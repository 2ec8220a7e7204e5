package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tokenprices-service/internal/application"
	infraconfig "tokenprices-service/internal/infrastructure/config"

	"go.uber.org/zap"
)

var _ application.Worker = (*TokenRefreshWorker)(nil)

// Refresher is satisfied by *application.TokenPriceUpdater.
type Refresher interface {
	RunOnce(ctx context.Context, store application.IdempotencyStore, key string, force bool) (application.RefreshSummary, error)
}

// TokenRefreshWorker copies prices onto active tokens every Every. With a
// shared Idem store only one instance runs per window.
type TokenRefreshWorker struct {
	Updater Refresher
	Idem    application.IdempotencyStore
	Clock   application.Clock

	Every      time.Duration
	RunTimeout time.Duration
	RunOnStart bool
	Log        *zap.Logger
}

func (w *TokenRefreshWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.Clock == nil {
		w.Clock = application.SystemClock()
	}
	if w.Every <= 0 {
		w.Every = infraconfig.DefaultRefreshEvery
	}
	if w.RunTimeout <= 0 {
		w.RunTimeout = w.Every
	}

	t := time.NewTicker(w.Every)
	defer t.Stop()

	log.Info("token_refresh_worker_started", zap.Duration("every", w.Every))
	if w.RunOnStart {
		w.tick(ctx, log)
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("token_refresh_worker_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

// WindowKey names the refresh window containing at.
func (w *TokenRefreshWorker) WindowKey(at time.Time) string {
	return fmt.Sprintf("token-refresh:%d", at.UTC().Truncate(w.Every).Unix())
}

func (w *TokenRefreshWorker) tick(ctx context.Context, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("token_refresh_worker.panic", zap.Any("r", r))
		}
	}()
	c, cancel := context.WithTimeout(ctx, w.RunTimeout)
	defer cancel()

	key := w.WindowKey(w.Clock.Now())
	sum, err := w.Updater.RunOnce(c, w.Idem, key, false)
	switch {
	case errors.Is(err, application.ErrConflict):
		log.Debug("token_refresh_worker.window_taken", zap.String("key", key))
	case err != nil:
		log.Warn("token_refresh_worker.run_failed", zap.String("key", key), zap.Error(err))
	default:
		log.Info("token_refresh_worker.run_done",
			zap.String("key", key),
			zap.Int("updated", sum.Updated),
			zap.Int("failed", sum.Failed),
		)
	}
}
