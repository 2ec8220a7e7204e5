package domain

// ResultKind tags how a symbol's price was obtained.
type ResultKind int

const (
	KindCacheHit ResultKind = iota + 1
	KindRefreshed
	KindStaleFallback
	KindMockData
	KindUnavailable
)

func (k ResultKind) String() string {
	switch k {
	case KindCacheHit:
		return "cache_hit"
	case KindRefreshed:
		return "refreshed"
	case KindStaleFallback:
		return "stale_fallback"
	case KindMockData:
		return "mock_data"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

const (
	ReasonAPIErrorStale    = "API error, using stale cache"
	ReasonUnsupportedStale = "Symbol not supported by provider, using stale cache"
	ReasonNoData           = "No data available"
)

// PriceResult is the answer for one symbol. Quote is zero for KindUnavailable;
// Reason is set only for KindStaleFallback and KindUnavailable.
type PriceResult struct {
	Kind   ResultKind
	Quote  CachedQuote
	Reason string
}

func CacheHit(q CachedQuote) PriceResult  { return PriceResult{Kind: KindCacheHit, Quote: q} }
func Refreshed(q CachedQuote) PriceResult { return PriceResult{Kind: KindRefreshed, Quote: q} }
func MockData(q CachedQuote) PriceResult  { return PriceResult{Kind: KindMockData, Quote: q} }

func StaleFallback(q CachedQuote, reason string) PriceResult {
	return PriceResult{Kind: KindStaleFallback, Quote: q, Reason: reason}
}

func Unavailable(symbol string) PriceResult {
	return PriceResult{Kind: KindUnavailable, Quote: CachedQuote{Symbol: symbol}, Reason: ReasonNoData}
}

// Cached reports whether the value came from the cache table.
func (r PriceResult) Cached() bool {
	return r.Kind == KindCacheHit || r.Kind == KindStaleFallback
}

func (r PriceResult) Stale() bool { return r.Kind == KindStaleFallback }
func (r PriceResult) Mock() bool  { return r.Kind == KindMockData }

// Usable reports whether the result carries a real price.
func (r PriceResult) Usable() bool { return r.Kind != KindUnavailable }
