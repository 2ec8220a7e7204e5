package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tokenprices-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var _ PriceSource = (*PriceService)(nil)

type PriceRequest struct {
	Symbols []string
	Force   bool
}

type PriceResponse struct {
	Data             map[string]domain.PriceResult
	CachedSymbols    []string
	RefreshedSymbols []string
	Rate             float64
	Source           string
	Timestamp        time.Time
}

func (r PriceResponse) CacheHit() bool     { return len(r.RefreshedSymbols) == 0 }
func (r PriceResponse) APICallsSaved() int { return len(r.CachedSymbols) }

// PriceService answers price requests from the quote cache and refreshes
// stale symbols through the quote provider, or the mock source when no
// provider is configured.
type PriceService struct {
	cache    QuoteCache
	rates    RateResolver
	provider QuoteProvider
	mock     MockQuoteSource
	catalog  *domain.Catalog
	usage    *UsageLogger
	clock    Clock
	log      *zap.Logger
	flight   *singleflight.Group
}

type Option func(*PriceService)

func WithClock(c Clock) Option             { return func(s *PriceService) { s.clock = c } }
func WithLogger(l *zap.Logger) Option      { return func(s *PriceService) { s.log = l } }
func WithCatalog(c *domain.Catalog) Option { return func(s *PriceService) { s.catalog = c } }

// WithSingleFlight coalesces concurrent refreshes of the same stale set
// within this process. The shared refresh ignores the leader's cancellation
// and is bounded by the provider's HTTP timeout instead. Off unless set.
func WithSingleFlight() Option {
	return func(s *PriceService) { s.flight = &singleflight.Group{} }
}

// NewPriceService builds the orchestrator. A nil provider selects mock mode.
func NewPriceService(cache QuoteCache, rates RateResolver, provider QuoteProvider, mock MockQuoteSource, usage *UsageLogger, opts ...Option) *PriceService {
	s := &PriceService{
		cache:    cache,
		rates:    rates,
		provider: provider,
		mock:     mock,
		usage:    usage,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.catalog == nil {
		s.catalog = domain.DefaultCatalog()
	}
	return s
}

// MockMode reports whether refreshes are synthesized.
func (s *PriceService) MockMode() bool { return s.provider == nil }

// GetPrices returns prices for every requested symbol. The only error for a
// validated request is ErrInternal from a recovered fault.
func (s *PriceService) GetPrices(ctx context.Context, req PriceRequest) (resp PriceResponse, err error) {
	symbols := domain.NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return PriceResponse{}, fmt.Errorf("%w: no symbols provided", ErrBadRequest)
	}
	start := s.clock.Now()

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		err = fmt.Errorf("%w: %v", ErrInternal, rec)
		resp = PriceResponse{}
		s.log.Error("price.unhandled", zap.Strings("symbols", symbols), zap.Error(err))
		s.usage.Record(ctx, domain.UsageLogEntry{
			Provider:       domain.ProviderError,
			Endpoint:       domain.EndpointCryptoPrices,
			Symbols:        symbols,
			Success:        false,
			Error:          err.Error(),
			ResponseTimeMS: s.clock.Now().Sub(start).Milliseconds(),
		})
	}()

	resp, out := s.resolve(ctx, symbols, req.Force, start)

	s.usage.Record(ctx, domain.UsageLogEntry{
		Provider:       out.provider,
		Endpoint:       domain.EndpointCryptoPrices,
		Symbols:        symbols,
		Success:        out.success,
		Error:          out.errMsg,
		ResponseTimeMS: s.clock.Now().Sub(start).Milliseconds(),
	})
	return resp, nil
}

// Prices adapts GetPrices to PriceSource.
func (s *PriceService) Prices(ctx context.Context, symbols []string, force bool) (map[string]domain.PriceResult, error) {
	resp, err := s.GetPrices(ctx, PriceRequest{Symbols: symbols, Force: force})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type refreshOutcome struct {
	results  map[string]domain.PriceResult
	provider string
	success  bool
	errMsg   string
}

func (s *PriceService) resolve(ctx context.Context, symbols []string, force bool, now time.Time) (PriceResponse, refreshOutcome) {
	data := make(map[string]domain.PriceResult, len(symbols))
	rows := make(map[string]domain.CachedQuote, len(symbols))
	fresh := make([]string, 0, len(symbols))
	stale := make([]string, 0, len(symbols))

	for _, sym := range symbols {
		q, err := s.cache.Get(ctx, sym)
		switch {
		case err == nil:
			rows[sym] = q
			if !force && q.IsFresh(now) {
				data[sym] = domain.CacheHit(q)
				fresh = append(fresh, sym)
				continue
			}
		case !errors.Is(err, ErrNotFound):
			s.log.Warn("price.cache_read_failed", zap.String("symbol", sym), zap.Error(err))
		}
		stale = append(stale, sym)
	}

	resp := PriceResponse{
		Data:             data,
		CachedSymbols:    fresh,
		RefreshedSymbols: stale,
		Timestamp:        now,
	}

	if len(stale) == 0 {
		resp.Rate = s.rates.Peek(ctx)
		resp.Source = domain.ProviderCache
		return resp, refreshOutcome{provider: domain.ProviderCache, success: true}
	}

	resp.Rate = s.rates.Current(ctx)
	out := s.refresh(ctx, stale, rows, resp.Rate, now)
	for sym, r := range out.results {
		data[sym] = r
	}

	resp.Source = out.provider
	if len(fresh) > 0 {
		resp.Source = domain.SourceMixed
	}
	return resp, out
}

func (s *PriceService) refresh(ctx context.Context, stale []string, rows map[string]domain.CachedQuote, rate float64, now time.Time) refreshOutcome {
	if s.flight == nil {
		return s.doRefresh(ctx, stale, rows, rate, now)
	}
	// Followers share the leader's call, so it must outlive the leader's request.
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.flight.Do(flightKey(stale), func() (any, error) {
		return s.doRefresh(shared, stale, rows, rate, now), nil
	})
	return v.(refreshOutcome)
}

func flightKey(symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func (s *PriceService) doRefresh(ctx context.Context, stale []string, rows map[string]domain.CachedQuote, rate float64, now time.Time) refreshOutcome {
	if s.provider == nil {
		return s.mockRefresh(ctx, stale, rate, now)
	}

	out := refreshOutcome{
		results:  make(map[string]domain.PriceResult, len(stale)),
		provider: s.provider.Name(),
		success:  true,
	}

	ids := make([]int, 0, len(stale))
	symByID := make(map[int]string, len(stale))
	for _, sym := range stale {
		id, err := s.catalog.Resolve(sym)
		if err != nil {
			s.log.Debug("price.unmapped_symbol", zap.Error(err))
			continue
		}
		ids = append(ids, id)
		symByID[id] = sym
	}

	if len(ids) > 0 {
		quotes, err := s.provider.FetchQuotes(ctx, ids)
		if err != nil {
			s.log.Warn("price.refresh_failed",
				zap.String("provider", out.provider),
				zap.Ints("ids", ids),
				zap.Error(err),
			)
			for _, sym := range stale {
				if row, ok := rows[sym]; ok {
					out.results[sym] = domain.StaleFallback(row, domain.ReasonAPIErrorStale)
				} else {
					out.results[sym] = domain.Unavailable(sym)
				}
			}
			out.success = false
			out.errMsg = err.Error()
			return out
		}
		for _, pq := range quotes {
			sym, ok := symByID[pq.ProviderID]
			if !ok {
				continue
			}
			q := domain.QuoteFromProvider(pq, sym, rate)
			q.UpdatedAt = now
			s.store(ctx, q)
			out.results[sym] = domain.Refreshed(q)
		}
	}

	// Unmapped, or omitted by the provider: only a stale row can answer.
	for _, sym := range stale {
		if _, done := out.results[sym]; done {
			continue
		}
		if row, ok := rows[sym]; ok {
			out.results[sym] = domain.StaleFallback(row, domain.ReasonUnsupportedStale)
		}
	}
	return out
}

func (s *PriceService) mockRefresh(ctx context.Context, stale []string, rate float64, now time.Time) refreshOutcome {
	out := refreshOutcome{
		results:  make(map[string]domain.PriceResult, len(stale)),
		provider: domain.ProviderMock,
		success:  true,
	}
	for _, sym := range stale {
		q := domain.QuoteFromProvider(s.mock.Quote(sym), sym, rate)
		q.UpdatedAt = now
		s.store(ctx, q)
		out.results[sym] = domain.MockData(q)
	}
	return out
}

func (s *PriceService) store(ctx context.Context, q domain.CachedQuote) {
	if err := s.cache.Upsert(ctx, q); err != nil {
		s.log.Warn("price.cache_write_failed", zap.String("symbol", q.Symbol), zap.Error(err))
	}
}
