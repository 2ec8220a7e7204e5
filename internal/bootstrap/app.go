package bootstrap

import (
	"context"
	"net/http"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/config"
	httpserver "tokenprices-service/internal/infrastructure/http"
	"tokenprices-service/internal/infrastructure/pg"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type cleanups []func()

func (c *cleanups) add(fn func()) { *c = append(*c, fn) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

type core struct {
	db      *pg.DB
	redis   *redis.Client
	prices  *application.PriceService
	updater *application.TokenPriceUpdater
	idem    application.IdempotencyStore
}

func buildCore(ctx context.Context, cfg config.Config, log *zap.Logger) (core, func(), error) {
	var cs cleanups
	fail := func(err error) (core, func(), error) {
		cs.run()
		return core{}, func() {}, err
	}

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	if err != nil {
		return fail(err)
	}
	cs.add(closeDB)

	rdb, closeRedis, err := ProvideRedisClient(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	cs.add(closeRedis)

	cache, err := ProvideQuoteCache(cfg, db, rdb)
	if err != nil {
		return fail(err)
	}
	catalog, err := ProvideCatalog(cfg)
	if err != nil {
		return fail(err)
	}

	hc := ProvideHTTPClient(cfg)
	rates := ProvideRateService(db, cfg, hc, log)
	prices := ProvidePriceService(cfg, db, cache, rates, ProvideQuoteProvider(cfg, hc), catalog, log)
	updater := ProvideTokenUpdater(db, ProvidePriceSource(cfg, hc, prices), log)

	return core{
		db:      db,
		redis:   rdb,
		prices:  prices,
		updater: updater,
		idem:    ProvideIdempotency(rdb, cfg),
	}, cs.run, nil
}

// InitAPI builds the HTTP handler with its readiness probe.
func InitAPI(ctx context.Context, cfg config.Config, log *zap.Logger) (http.Handler, func(), error) {
	c, cleanup, err := buildCore(ctx, cfg, log)
	if err != nil {
		return nil, cleanup, err
	}
	srv := httpserver.NewServer(c.prices, c.updater, c.idem)
	srv.SetReadyCheck(func(ctx context.Context) error {
		if err := c.db.Ping(ctx); err != nil {
			return err
		}
		if c.redis != nil {
			return c.redis.Ping(ctx).Err()
		}
		return nil
	})
	return httpserver.NewRouter(srv), cleanup, nil
}

func InitWorker(ctx context.Context, cfg config.Config, log *zap.Logger) (application.Worker, func(), error) {
	c, cleanup, err := buildCore(ctx, cfg, log)
	if err != nil {
		return nil, cleanup, err
	}
	return ProvideWorker(cfg, c.updater, c.idem, log), cleanup, nil
}
