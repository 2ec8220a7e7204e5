package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// IdempotencyStore reserves short-lived keys shared by all instances.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release drops a reservation so the key can be retried.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency reserves every key; used when Redis is disabled.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }
func (NoopIdempotency) Release(context.Context, string) error            { return nil }

// RunOnce runs a refresh unless key is already reserved, in which case it
// returns ErrConflict. An empty key or unreachable store does not block the run.
// A run that fails outright releases its key so the caller can retry with it.
func (u *TokenPriceUpdater) RunOnce(ctx context.Context, store IdempotencyStore, key string, force bool) (RefreshSummary, error) {
	reserved := false
	if store != nil && key != "" {
		ok, err := store.TryReserve(ctx, key)
		switch {
		case err != nil:
			u.log.Warn("token_refresh.reserve_failed", zap.String("key", key), zap.Error(err))
		case !ok:
			return RefreshSummary{}, fmt.Errorf("%w: refresh %q already ran", ErrConflict, key)
		default:
			reserved = true
		}
	}
	sum, err := u.Run(ctx, force)
	if err != nil && reserved {
		if rerr := store.Release(context.WithoutCancel(ctx), key); rerr != nil {
			u.log.Warn("token_refresh.release_failed", zap.String("key", key), zap.Error(rerr))
		}
	}
	return sum, err
}
