package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"tokenprices-service/internal/domain"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

const testRate = 16000.0

func quoteAt(sym string, usd float64, at time.Time) domain.CachedQuote {
	return domain.CachedQuote{Symbol: sym, PriceUSD: usd, PriceIDR: usd * testRate, Change24h: 1, Volume24h: 10, MarketCap: 100, UpdatedAt: at}
}

func defaultQuotes() map[int]domain.ProviderQuote {
	return map[int]domain.ProviderQuote{
		1:    {ProviderID: 1, Symbol: "BTC", PriceUSD: 43000.123456789, Change24h: 2.345, Volume24h: 1e9 + 0.4, MarketCap: 8e11 + 0.6},
		1027: {ProviderID: 1027, Symbol: "ETH", PriceUSD: 2500.5, Change24h: -1.111, Volume24h: 5e8, MarketCap: 3e11},
		52:   {ProviderID: 52, Symbol: "XRP", PriceUSD: 0.55, Change24h: 0.5, Volume24h: 1e7, MarketCap: 3e10},
	}
}

type harness struct {
	cache    *fakeQuoteCache
	provider *fakeProvider
	usage    *fakeUsageRepo
	svc      *PriceService
}

func newHarness(t *testing.T, rows map[string]domain.CachedQuote, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		cache:    &fakeQuoteCache{store: rows},
		provider: &fakeProvider{quotes: defaultQuotes()},
		usage:    &fakeUsageRepo{},
	}
	opts = append([]Option{WithClock(fakeClock{t: testNow})}, opts...)
	h.svc = NewPriceService(h.cache, fixedRates{rate: testRate}, h.provider, fakeMock{price: 1},
		NewUsageLogger(h.usage, fakeClock{t: testNow}, nil), opts...)
	return h
}

func TestGetPrices_EmptySymbols(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	_, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{" ", ""}})
	require.ErrorIs(t, err, ErrBadRequest)
	require.Empty(t, h.usage.entries)
	require.Zero(t, h.provider.callCount())
}

func TestGetPrices_FreshnessBoundary(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]domain.CachedQuote{
		"BTC": quoteAt("BTC", 44000, testNow.Add(-59*time.Minute)),
	})
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"btc"}})
	require.NoError(t, err)
	require.Equal(t, domain.KindCacheHit, resp.Data["BTC"].Kind)
	require.True(t, resp.Data["BTC"].Cached())
	require.Zero(t, h.provider.callCount())

	h = newHarness(t, map[string]domain.CachedQuote{
		"BTC": quoteAt("BTC", 44000, testNow.Add(-61*time.Minute)),
	})
	resp, err = h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.NoError(t, err)
	require.Equal(t, domain.KindRefreshed, resp.Data["BTC"].Kind)
	require.False(t, resp.Data["BTC"].Cached())
	require.Equal(t, 1, h.provider.callCount())
}

func TestGetPrices_ExactBoundaryIsStale(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]domain.CachedQuote{
		"BTC": quoteAt("BTC", 44000, testNow.Add(-time.Hour)),
	})
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.NoError(t, err)
	require.Equal(t, []string{"BTC"}, resp.RefreshedSymbols)
	require.Equal(t, 1, h.provider.callCount())
}

func TestGetPrices_ForceBypassesFreshCache(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]domain.CachedQuote{
		"BTC": quoteAt("BTC", 44000, testNow),
	})
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}, Force: true})
	require.NoError(t, err)
	require.Equal(t, 1, h.provider.callCount())
	require.Equal(t, []int{1}, h.provider.calls[0])
	require.Equal(t, domain.KindRefreshed, resp.Data["BTC"].Kind)
}

func TestGetPrices_RefreshWritesRoundedQuote(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.NoError(t, err)

	got := resp.Data["BTC"].Quote
	require.InDelta(t, 43000.12345679, got.PriceUSD, 1e-9)
	require.InDelta(t, 43000.12345679*testRate, got.PriceIDR, 1e-4)
	require.Equal(t, 2.35, got.Change24h)
	require.Equal(t, 1e9, got.Volume24h)
	require.Equal(t, 8e11+1, got.MarketCap)
	require.Equal(t, testNow, got.UpdatedAt)

	stored := h.cache.store["BTC"]
	require.Equal(t, got, stored)
	require.Equal(t, testRate, resp.Rate)
	require.Equal(t, "coinmarketcap", resp.Source)
	require.False(t, resp.CacheHit())
}

func TestGetPrices_IdempotentUpsert(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	_, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"ETH"}, Force: true})
	require.NoError(t, err)

	q := h.provider.quotes[1027]
	q.PriceUSD = 2600
	h.provider.quotes[1027] = q
	_, err = h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"ETH"}, Force: true})
	require.NoError(t, err)

	require.Len(t, h.cache.store, 1)
	require.Equal(t, 2600.0, h.cache.store["ETH"].PriceUSD)
	require.Equal(t, 2, h.cache.upserts)
}

func TestGetPrices_APIFailureServesStaleCache(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]domain.CachedQuote{
		"ETH": quoteAt("ETH", 2400, testNow.Add(-3*time.Hour)),
	})
	h.provider.err = ErrUpstream

	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"ETH", "XRP"}})
	require.NoError(t, err)

	eth := resp.Data["ETH"]
	require.Equal(t, domain.KindStaleFallback, eth.Kind)
	require.True(t, eth.Cached())
	require.True(t, eth.Stale())
	require.Equal(t, domain.ReasonAPIErrorStale, eth.Reason)
	require.Equal(t, 2400.0, eth.Quote.PriceUSD)

	xrp := resp.Data["XRP"]
	require.Equal(t, domain.KindUnavailable, xrp.Kind)
	require.False(t, xrp.Cached())
	require.Equal(t, domain.ReasonNoData, xrp.Reason)
	require.Zero(t, xrp.Quote.PriceUSD)
	require.Zero(t, xrp.Quote.PriceIDR)

	require.Len(t, h.usage.entries, 1)
	entry := h.usage.entries[0]
	require.Equal(t, "coinmarketcap", entry.Provider)
	require.False(t, entry.Success)
	require.Contains(t, entry.Error, "upstream")
}

func TestGetPrices_FullCacheHit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]domain.CachedQuote{
		"BTC": quoteAt("BTC", 44000, testNow),
		"ETH": quoteAt("ETH", 2400, testNow),
	})
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC", "ETH"}})
	require.NoError(t, err)
	require.Equal(t, domain.ProviderCache, resp.Source)
	require.True(t, resp.CacheHit())
	require.Empty(t, resp.RefreshedSymbols)
	require.Equal(t, []string{"BTC", "ETH"}, resp.CachedSymbols)
	require.Equal(t, 2, resp.APICallsSaved())
	require.Zero(t, h.provider.callCount())
	require.Zero(t, h.cache.upserts)

	require.Len(t, h.usage.entries, 1)
	require.Equal(t, domain.ProviderCache, h.usage.entries[0].Provider)
	require.True(t, h.usage.entries[0].Success)
	require.Equal(t, domain.EndpointCryptoPrices, h.usage.entries[0].Endpoint)
}

func TestGetPrices_MixedRefresh(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]domain.CachedQuote{
		"BTC": quoteAt("BTC", 44000, testNow),
		"ETH": quoteAt("ETH", 2400, testNow.Add(-2*time.Hour)),
	})
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC", "ETH"}})
	require.NoError(t, err)
	require.Equal(t, []string{"ETH"}, resp.RefreshedSymbols)
	require.Equal(t, []string{"BTC"}, resp.CachedSymbols)
	require.Equal(t, domain.SourceMixed, resp.Source)
	require.Equal(t, 1, h.provider.callCount())
	require.Equal(t, []int{1027}, h.provider.calls[0])
	require.Equal(t, domain.KindCacheHit, resp.Data["BTC"].Kind)
	require.Equal(t, domain.KindRefreshed, resp.Data["ETH"].Kind)
}

func TestGetPrices_BatchesStaleSymbolsInOneCall(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	_, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC", "eth", "XRP", "btc"}})
	require.NoError(t, err)
	require.Equal(t, 1, h.provider.callCount())
	require.Equal(t, []int{1, 1027, 52}, h.provider.calls[0])
}

func TestGetPrices_UnmappedSymbolSilentlyDropped(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]domain.CachedQuote{
		"OLD": quoteAt("OLD", 3, testNow.Add(-5*time.Hour)),
	})
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC", "NOPE", "OLD"}})
	require.NoError(t, err)
	require.Equal(t, []int{1}, h.provider.calls[0])
	require.Equal(t, []string{"BTC", "NOPE", "OLD"}, resp.RefreshedSymbols)

	_, ok := resp.Data["NOPE"]
	require.False(t, ok)

	old := resp.Data["OLD"]
	require.Equal(t, domain.KindStaleFallback, old.Kind)
	require.Equal(t, domain.ReasonUnsupportedStale, old.Reason)
}

func TestGetPrices_OnlyUnmappedSkipsProviderCall(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"NOPE"}})
	require.NoError(t, err)
	require.Zero(t, h.provider.callCount())
	require.Empty(t, resp.Data)
}

func TestGetPrices_MockMode(t *testing.T) {
	t.Parallel()
	cache := &fakeQuoteCache{}
	usage := &fakeUsageRepo{}
	svc := NewPriceService(cache, fixedRates{rate: testRate}, nil, fakeMock{price: 45123.456},
		NewUsageLogger(usage, nil, nil), WithClock(fakeClock{t: testNow}))
	require.True(t, svc.MockMode())

	resp, err := svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.NoError(t, err)
	btc := resp.Data["BTC"]
	require.Equal(t, domain.KindMockData, btc.Kind)
	require.True(t, btc.Mock())
	require.Equal(t, domain.ProviderMock, resp.Source)
	require.Equal(t, btc.Quote, cache.store["BTC"])
	require.Equal(t, domain.ProviderMock, usage.entries[0].Provider)
}

func TestGetPrices_CacheWriteFailureIgnored(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.cache.putErr = ErrRepo
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.NoError(t, err)
	require.Equal(t, domain.KindRefreshed, resp.Data["BTC"].Kind)
	require.True(t, h.usage.entries[0].Success)
}

func TestGetPrices_CacheReadErrorTreatedAsMiss(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.cache.getErr = ErrRepo
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.NoError(t, err)
	require.Equal(t, domain.KindRefreshed, resp.Data["BTC"].Kind)
}

func TestGetPrices_UsageLogFailureIgnored(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.usage.err = ErrRepo
	resp, err := h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.NoError(t, err)
	require.Contains(t, resp.Data, "BTC")
}

func TestGetPrices_PanicBecomesInternalError(t *testing.T) {
	t.Parallel()
	usage := &fakeUsageRepo{}
	svc := NewPriceService(panicCache{}, fixedRates{rate: testRate}, &fakeProvider{}, fakeMock{},
		NewUsageLogger(usage, nil, nil), WithClock(fakeClock{t: testNow}))

	_, err := svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	require.ErrorIs(t, err, ErrInternal)
	require.Contains(t, err.Error(), "boom")
	require.Len(t, usage.entries, 1)
	require.Equal(t, domain.ProviderError, usage.entries[0].Provider)
	require.False(t, usage.entries[0].Success)
}

func TestGetPrices_SingleFlightCoalesces(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, WithSingleFlight())
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	h.provider.hook = func() {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"btc"}})
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, 1, h.provider.callCount())
}

func TestGetPrices_SingleFlightSurvivesLeaderCancel(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, WithSingleFlight())
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	h.provider.hook = func() {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.svc.GetPrices(leaderCtx, PriceRequest{Symbols: []string{"BTC"}})
	}()
	<-entered

	var resp PriceResponse
	var err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		resp, err = h.svc.GetPrices(context.Background(), PriceRequest{Symbols: []string{"BTC"}})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(release)
	wg.Wait()

	require.NoError(t, err)
	require.Equal(t, 1, h.provider.callCount())
	require.Equal(t, domain.KindRefreshed, resp.Data["BTC"].Kind)
}

func TestPrices_AdaptsGetPrices(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	data, err := h.svc.Prices(context.Background(), []string{"eth"}, false)
	require.NoError(t, err)
	require.Equal(t, domain.KindRefreshed, data["ETH"].Kind)

	_, err = h.svc.Prices(context.Background(), nil, false)
	require.ErrorIs(t, err, ErrBadRequest)
}
