package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/config"
	"tokenprices-service/internal/domain"
	infraconfig "tokenprices-service/internal/infrastructure/config"
	httpserver "tokenprices-service/internal/infrastructure/http"
	"tokenprices-service/internal/infrastructure/pg"
	"tokenprices-service/internal/infrastructure/provider"
	redisstore "tokenprices-service/internal/infrastructure/redis"
	"tokenprices-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required")

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

func needsRedis(cfg config.Config) bool {
	return cfg.CacheBackend == "redis" || cfg.IdempotencyBackend == "redis"
}

// ProvideRedisClient returns nil when no component is configured to use Redis.
func ProvideRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, func(), error) {
	if !needsRedis(cfg) {
		return nil, func() {}, nil
	}
	client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, func() {}, err
	}
	return client, func() { _ = client.Close() }, nil
}

func ProvideIdempotency(client *redis.Client, cfg config.Config) application.IdempotencyStore {
	if cfg.IdempotencyBackend != "redis" || client == nil {
		return application.NoopIdempotency{}
	}
	return redisstore.New(client, cfg.RedisTTL)
}

func ProvideQuoteCache(cfg config.Config, db *pg.DB, client *redis.Client) (application.QuoteCache, error) {
	switch cfg.CacheBackend {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
		return redisstore.NewQuoteCache(client, infraconfig.DefaultRedisKeyPrefix), nil
	case "", "pg":
		if db == nil {
			return nil, ErrMissingDBURL
		}
		return pg.NewQuoteCacheRepo(db), nil
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND=%q", cfg.CacheBackend)
	}
}

func ProvideCatalog(cfg config.Config) (*domain.Catalog, error) {
	return infraconfig.LoadCatalog(cfg.SymbolsFile)
}

func ProvideHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// ProvideQuoteProvider returns nil in mock mode.
func ProvideQuoteProvider(cfg config.Config, hc *http.Client) application.QuoteProvider {
	if cfg.MockMode() {
		return nil
	}
	var limiter *rate.Limiter
	if cfg.QuoteAPIRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QuoteAPIRPS), 1)
	}
	return provider.NewCoinMarketCap(cfg.CMCAPIBase, cfg.CMCAPIKey, hc, limiter)
}

func ProvideRateService(db *pg.DB, cfg config.Config, hc *http.Client, log *zap.Logger) *application.ExchangeRateService {
	return application.NewExchangeRateService(
		pg.NewExchangeRateRepo(db),
		provider.NewExchangeRateAPI(cfg.RateAPIBase, hc),
		application.SystemClock(),
		log,
	)
}

func ProvidePriceService(
	cfg config.Config,
	db *pg.DB,
	cache application.QuoteCache,
	rates application.RateResolver,
	quotes application.QuoteProvider,
	catalog *domain.Catalog,
	log *zap.Logger,
) *application.PriceService {
	usage := application.NewUsageLogger(pg.NewUsageLogRepo(db), application.SystemClock(), log)
	opts := []application.Option{
		application.WithLogger(log),
		application.WithCatalog(catalog),
	}
	if cfg.SingleFlight {
		opts = append(opts, application.WithSingleFlight())
	}
	svc := application.NewPriceService(cache, rates, quotes, provider.NewMock(catalog, 0), usage, opts...)
	if svc.MockMode() {
		log.Warn("price.mock_mode", zap.String("reason", "CMC_API_KEY not set"))
	}
	return svc
}

// ProvidePriceSource picks the remote price endpoint when APP_BASE_URL is set.
func ProvidePriceSource(cfg config.Config, hc *http.Client, local *application.PriceService) application.PriceSource {
	if cfg.AppBaseURL != "" {
		return httpserver.NewPriceClient(cfg.AppBaseURL, hc)
	}
	return local
}

func ProvideTokenUpdater(db *pg.DB, prices application.PriceSource, log *zap.Logger) *application.TokenPriceUpdater {
	return application.NewTokenPriceUpdater(pg.NewTokenRepo(db), prices, application.SystemClock(), log)
}

func ProvideWorker(cfg config.Config, updater *application.TokenPriceUpdater, idem application.IdempotencyStore, log *zap.Logger) application.Worker {
	return &worker.TokenRefreshWorker{
		Updater:    updater,
		Idem:       idem,
		Every:      cfg.TokenRefreshEvery,
		RunOnStart: true,
		Log:        log.With(zap.String("worker", "token_refresh")),
	}
}
