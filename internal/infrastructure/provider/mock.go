package provider

import (
	"math/rand"
	"sync"
	"time"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"
)

var _ application.MockQuoteSource = (*Mock)(nil)

// MockJitter bounds the relative deviation of synthetic prices from the base price.
const MockJitter = 0.05

// Mock synthesizes plausible quotes around the catalog base price.
type Mock struct {
	catalog *domain.Catalog
	mu      sync.Mutex
	rnd     *rand.Rand
}

// NewMock returns a generator seeded with seed, or the clock when seed is 0.
func NewMock(catalog *domain.Catalog, seed int64) *Mock {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Mock{catalog: catalog, rnd: rand.New(rand.NewSource(seed))}
}

func (m *Mock) Quote(symbol string) domain.ProviderQuote {
	m.mu.Lock()
	jitter, change, vol := m.rnd.Float64(), m.rnd.Float64(), m.rnd.Float64()
	m.mu.Unlock()

	base := m.catalog.BasePrice(symbol)
	price := base * (1 + (jitter*2-1)*MockJitter)
	id, _ := m.catalog.ProviderID(symbol)
	return domain.ProviderQuote{
		ProviderID: id,
		Symbol:     symbol,
		PriceUSD:   price,
		Change24h:  (change*2 - 1) * 10,
		Volume24h:  price * (1e5 + vol*1e6),
		MarketCap:  price * 1e7 * (1 + vol),
	}
}
