package domain

import "fmt"

// CatalogEntry maps a symbol to the market-data provider id and the base
// price used for synthetic quotes.
type CatalogEntry struct {
	ProviderID int     `yaml:"id"`
	BasePrice  float64 `yaml:"base_price"`
}

// DefaultMockBasePrice is used for symbols the catalog has no base price for.
const DefaultMockBasePrice = 1.0

var defaultCatalog = map[string]CatalogEntry{
	"BTC":   {ProviderID: 1, BasePrice: 45000},
	"ETH":   {ProviderID: 1027, BasePrice: 3000},
	"USDT":  {ProviderID: 825, BasePrice: 1},
	"BNB":   {ProviderID: 1839, BasePrice: 300},
	"XRP":   {ProviderID: 52, BasePrice: 0.6},
	"ADA":   {ProviderID: 2010, BasePrice: 0.5},
	"SOL":   {ProviderID: 5426, BasePrice: 100},
	"DOGE":  {ProviderID: 74, BasePrice: 0.08},
	"DOT":   {ProviderID: 6636, BasePrice: 7},
	"MATIC": {ProviderID: 3890, BasePrice: 0.8},
	"USDC":  {ProviderID: 3408, BasePrice: 1},
	"TRX":   {ProviderID: 1958, BasePrice: 0.1},
	"LTC":   {ProviderID: 2, BasePrice: 70},
	"AVAX":  {ProviderID: 5805, BasePrice: 35},
	"SHIB":  {ProviderID: 5994, BasePrice: 0.00001},
	"LINK":  {ProviderID: 1975, BasePrice: 15},
}

type Catalog struct {
	entries map[string]CatalogEntry
}

// DefaultCatalog returns the built-in symbol table.
func DefaultCatalog() *Catalog { return NewCatalog(defaultCatalog) }

func NewCatalog(entries map[string]CatalogEntry) *Catalog {
	c := &Catalog{entries: make(map[string]CatalogEntry, len(entries))}
	for sym, e := range entries {
		c.Set(sym, e)
	}
	return c
}

// Set adds or replaces an entry; symbol is normalized.
func (c *Catalog) Set(symbol string, e CatalogEntry) {
	norm := NormalizeSymbols([]string{symbol})
	if len(norm) == 0 {
		return
	}
	c.entries[norm[0]] = e
}

// ProviderID returns the provider id for symbol, false when unmapped.
func (c *Catalog) ProviderID(symbol string) (int, bool) {
	e, ok := c.entries[symbol]
	if !ok || e.ProviderID == 0 {
		return 0, false
	}
	return e.ProviderID, true
}

// Resolve is ProviderID with an ErrUnknownSymbol error for unmapped symbols.
func (c *Catalog) Resolve(symbol string) (int, error) {
	id, ok := c.ProviderID(symbol)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return id, nil
}

func (c *Catalog) BasePrice(symbol string) float64 {
	if e, ok := c.entries[symbol]; ok && e.BasePrice > 0 {
		return e.BasePrice
	}
	return DefaultMockBasePrice
}
