package httpserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"
)

var errNotFound = application.ErrNotFound

type fakeQuoteCache struct {
	mu    sync.Mutex
	store map[string]domain.CachedQuote
}

func (f *fakeQuoteCache) Get(_ context.Context, symbol string) (domain.CachedQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.store[symbol]
	if !ok {
		return domain.CachedQuote{}, errNotFound
	}
	return q, nil
}

func (f *fakeQuoteCache) Upsert(_ context.Context, q domain.CachedQuote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = map[string]domain.CachedQuote{}
	}
	f.store[q.Symbol] = q
	return nil
}

type fixedRates struct{ rate float64 }

func (f fixedRates) Current(context.Context) float64 { return f.rate }
func (f fixedRates) Peek(context.Context) float64    { return f.rate }

type fakeProvider struct {
	quotes map[int]domain.ProviderQuote
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return "coinmarketcap" }

func (f *fakeProvider) FetchQuotes(_ context.Context, ids []int) ([]domain.ProviderQuote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ProviderQuote
	for _, id := range ids {
		if q, ok := f.quotes[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeMock struct{}

func (fakeMock) Quote(symbol string) domain.ProviderQuote {
	return domain.ProviderQuote{Symbol: symbol, PriceUSD: 45000, Change24h: 1, Volume24h: 10, MarketCap: 100}
}

type panicCache struct{}

func (panicCache) Get(context.Context, string) (domain.CachedQuote, error) { panic("cache exploded") }
func (panicCache) Upsert(context.Context, domain.CachedQuote) error        { return nil }

type fakeTokenRepo struct {
	tokens  []domain.Token
	listErr error
	updated map[string]domain.TokenPrice
}

func (f *fakeTokenRepo) ListActive(context.Context) ([]domain.Token, error) {
	return f.tokens, f.listErr
}

func (f *fakeTokenRepo) UpdatePrice(_ context.Context, id string, p domain.TokenPrice, _ time.Time) error {
	if f.updated == nil {
		f.updated = map[string]domain.TokenPrice{}
	}
	f.updated[id] = p
	return nil
}

type memIdem struct{ seen map[string]bool }

func (m *memIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[k] {
		return false, nil
	}
	m.seen[k] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, k string) error {
	delete(m.seen, k)
	return nil
}

var errDown = errors.New("down")
