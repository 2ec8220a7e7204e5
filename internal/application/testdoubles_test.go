package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"tokenprices-service/internal/domain"
)

var (
	ErrRepo     = errors.New("repo error")
	ErrUpstream = errors.New("upstream error")
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type fakeQuoteCache struct {
	mu      sync.Mutex
	store   map[string]domain.CachedQuote
	getErr  error
	putErr  error
	upserts int
}

func (f *fakeQuoteCache) Get(_ context.Context, symbol string) (domain.CachedQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.CachedQuote{}, f.getErr
	}
	q, ok := f.store[symbol]
	if !ok {
		return domain.CachedQuote{}, ErrNotFound
	}
	return q, nil
}

func (f *fakeQuoteCache) Upsert(_ context.Context, q domain.CachedQuote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.putErr != nil {
		return f.putErr
	}
	if f.store == nil {
		f.store = map[string]domain.CachedQuote{}
	}
	f.store[q.Symbol] = q
	return nil
}

type fakeRateRepo struct {
	row     *domain.ExchangeRate
	getErr  error
	putErr  error
	upserts int
}

func (f *fakeRateRepo) Get(context.Context, string, string) (domain.ExchangeRate, error) {
	if f.getErr != nil {
		return domain.ExchangeRate{}, f.getErr
	}
	if f.row == nil {
		return domain.ExchangeRate{}, ErrNotFound
	}
	return *f.row, nil
}

func (f *fakeRateRepo) Upsert(_ context.Context, r domain.ExchangeRate) error {
	f.upserts++
	if f.putErr != nil {
		return f.putErr
	}
	f.row = &r
	return nil
}

type fakeRateSource struct {
	rate  float64
	err   error
	calls int
}

func (f *fakeRateSource) Fetch(context.Context, string, string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

type fixedRates struct{ rate float64 }

func (f fixedRates) Current(context.Context) float64 { return f.rate }
func (f fixedRates) Peek(context.Context) float64    { return f.rate }

type fakeUsageRepo struct {
	mu      sync.Mutex
	entries []domain.UsageLogEntry
	err     error
}

func (f *fakeUsageRepo) Append(_ context.Context, e domain.UsageLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type fakeProvider struct {
	mu     sync.Mutex
	quotes map[int]domain.ProviderQuote
	err    error
	calls  [][]int
	hook   func()
}

func (f *fakeProvider) Name() string { return "coinmarketcap" }

func (f *fakeProvider) FetchQuotes(ctx context.Context, ids []int) ([]domain.ProviderQuote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]int(nil), ids...))
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ProviderQuote, 0, len(ids))
	for _, id := range ids {
		if q, ok := f.quotes[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMock struct{ price float64 }

func (f fakeMock) Quote(symbol string) domain.ProviderQuote {
	return domain.ProviderQuote{Symbol: symbol, PriceUSD: f.price, Change24h: 1.5, Volume24h: 1000, MarketCap: 5000}
}

type panicCache struct{}

func (panicCache) Get(context.Context, string) (domain.CachedQuote, error) { panic("boom") }
func (panicCache) Upsert(context.Context, domain.CachedQuote) error        { return nil }

type fakeTokenRepo struct {
	tokens  []domain.Token
	listErr error
	failIDs map[string]bool
	updated map[string]domain.TokenPrice
}

func (f *fakeTokenRepo) ListActive(context.Context) ([]domain.Token, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tokens, nil
}

func (f *fakeTokenRepo) UpdatePrice(_ context.Context, id string, p domain.TokenPrice, _ time.Time) error {
	if f.failIDs[id] {
		return ErrRepo
	}
	if f.updated == nil {
		f.updated = map[string]domain.TokenPrice{}
	}
	f.updated[id] = p
	return nil
}

type fakePriceSource struct {
	data  map[string]domain.PriceResult
	err   error
	force bool
	got   []string
}

func (f *fakePriceSource) Prices(_ context.Context, symbols []string, force bool) (map[string]domain.PriceResult, error) {
	f.got, f.force = symbols, force
	return f.data, f.err
}

type fakeIdem struct{ seen map[string]bool }

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, k string) error {
	delete(f.seen, k)
	return nil
}
