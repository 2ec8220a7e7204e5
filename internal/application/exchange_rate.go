package application

import (
	"context"
	"errors"

	"tokenprices-service/internal/domain"

	"go.uber.org/zap"
)

var _ RateResolver = (*ExchangeRateService)(nil)

// ExchangeRateService resolves USD to IDR, reusing a cached rate for up to
// domain.RateFreshness and falling back to domain.FallbackUSDToIDR.
type ExchangeRateService struct {
	repo   ExchangeRateRepo
	source RateSource
	clock  Clock
	log    *zap.Logger
}

func NewExchangeRateService(repo ExchangeRateRepo, source RateSource, clock Clock, log *zap.Logger) *ExchangeRateService {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExchangeRateService{repo: repo, source: source, clock: clock, log: log}
}

func (s *ExchangeRateService) Current(ctx context.Context) float64 {
	log := s.log.With(zap.String("base", domain.CurrencyUSD), zap.String("quote", domain.CurrencyIDR))
	now := s.clock.Now()

	cached, err := s.repo.Get(ctx, domain.CurrencyUSD, domain.CurrencyIDR)
	switch {
	case err == nil && cached.Rate > 0 && cached.IsFresh(now):
		return cached.Rate
	case err != nil && !errors.Is(err, ErrNotFound):
		log.Warn("exchange_rate.cache_read_failed", zap.Error(err))
	}

	if s.source == nil {
		return domain.FallbackUSDToIDR
	}
	rate, err := s.source.Fetch(ctx, domain.CurrencyUSD, domain.CurrencyIDR)
	if err != nil || rate <= 0 {
		log.Warn("exchange_rate.fetch_failed", zap.Error(err), zap.Float64("fallback", domain.FallbackUSDToIDR))
		return domain.FallbackUSDToIDR
	}

	if err := s.repo.Upsert(ctx, domain.ExchangeRate{
		Base:      domain.CurrencyUSD,
		Quote:     domain.CurrencyIDR,
		Rate:      rate,
		UpdatedAt: now,
	}); err != nil {
		log.Warn("exchange_rate.cache_write_failed", zap.Error(err))
	}
	return rate
}

// Peek returns the last cached rate regardless of age without calling the
// rate API, or the fallback when nothing is cached.
func (s *ExchangeRateService) Peek(ctx context.Context) float64 {
	cached, err := s.repo.Get(ctx, domain.CurrencyUSD, domain.CurrencyIDR)
	if err != nil || cached.Rate <= 0 {
		return domain.FallbackUSDToIDR
	}
	return cached.Rate
}
