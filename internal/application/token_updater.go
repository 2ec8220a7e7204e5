package application

import (
	"context"
	"fmt"

	"tokenprices-service/internal/domain"

	"go.uber.org/zap"
)

type TokenRefreshResult struct {
	TokenID string
	Symbol  string
	Success bool
	Error   string
	Price   domain.TokenPrice
}

type RefreshSummary struct {
	Total   int
	Updated int
	Failed  int
	Results []TokenRefreshResult
}

// TokenPriceUpdater copies current prices onto every active token.
type TokenPriceUpdater struct {
	tokens TokenRepo
	prices PriceSource
	clock  Clock
	log    *zap.Logger
}

func NewTokenPriceUpdater(tokens TokenRepo, prices PriceSource, clock Clock, log *zap.Logger) *TokenPriceUpdater {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenPriceUpdater{tokens: tokens, prices: prices, clock: clock, log: log}
}

// Run fails only when active tokens cannot be listed. Price lookup and
// per-token write failures are reported in the summary.
func (u *TokenPriceUpdater) Run(ctx context.Context, force bool) (RefreshSummary, error) {
	tokens, err := u.tokens.ListActive(ctx)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("list active tokens: %w", err)
	}
	sum := RefreshSummary{Total: len(tokens), Results: make([]TokenRefreshResult, 0, len(tokens))}
	if len(tokens) == 0 {
		return sum, nil
	}

	symbols := make([]string, 0, len(tokens))
	for _, t := range tokens {
		symbols = append(symbols, t.Symbol)
	}

	prices, err := u.prices.Prices(ctx, symbols, force)
	if err != nil {
		u.log.Warn("token_refresh.prices_failed", zap.Error(err))
		for _, t := range tokens {
			sum.add(TokenRefreshResult{TokenID: t.ID, Symbol: t.Symbol, Error: err.Error()})
		}
		return sum, nil
	}

	now := u.clock.Now()
	for _, t := range tokens {
		res := TokenRefreshResult{TokenID: t.ID, Symbol: t.Symbol}
		norm := domain.NormalizeSymbols([]string{t.Symbol})
		var r domain.PriceResult
		var ok bool
		if len(norm) == 1 {
			r, ok = prices[norm[0]]
		}
		if !ok || !r.Usable() {
			res.Error = "no price data"
			sum.add(res)
			continue
		}
		res.Price = domain.TokenPrice{
			PriceUSD:  r.Quote.PriceUSD,
			PriceIDR:  r.Quote.PriceIDR,
			Change24h: r.Quote.Change24h,
		}
		if err := u.tokens.UpdatePrice(ctx, t.ID, res.Price, now); err != nil {
			u.log.Warn("token_refresh.update_failed", zap.String("token_id", t.ID), zap.String("symbol", t.Symbol), zap.Error(err))
			res.Error = err.Error()
			sum.add(res)
			continue
		}
		res.Success = true
		sum.add(res)
	}
	u.log.Info("token_refresh.done",
		zap.Int("total", sum.Total),
		zap.Int("updated", sum.Updated),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (s *RefreshSummary) add(r TokenRefreshResult) {
	if r.Success {
		s.Updated++
	} else {
		s.Failed++
	}
	s.Results = append(s.Results, r)
}
