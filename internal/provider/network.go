package provider

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/domain"
)

// HTTPFetcher is the caller-supplied transport for the Network provider.
// The core engine never imports a concrete HTTP client or market-data SDK
// directly; callers inject one that satisfies this interface so the
// dependency boundary stays at the edge (spec §4.1).
type HTTPFetcher interface {
	FetchPrices(ticker string, start, end time.Time) ([]domain.Bar, error)
	FetchDividends(ticker string, start, end time.Time) ([]domain.DividendEvent, error)
}

// PriceCache is the subset of cache.Store the Network provider depends on.
// Declared locally so this package does not import internal/cache, keeping
// the provider -> cache dependency one-directional from the composition
// root rather than cyclic.
type PriceCache interface {
	GetPrices(ticker string) ([]domain.Bar, error)
	MergePrices(ticker string, bars []domain.Bar) error
	GetDividends(ticker string) ([]domain.DividendEvent, error)
	MergeDividends(ticker string, divs []domain.DividendEvent) error
}

// Network serves prices from a dual-format cache, falling back to a
// fetcher for any date outside what is cached and merging the fetched
// result back into the cache for next time.
type Network struct {
	ticker  string
	fetcher HTTPFetcher
	cache   PriceCache
	log     zerolog.Logger
}

// NewNetworkFactory returns a Factory bound to fetcher/cache, to be
// registered under a wildcard pattern covering real market tickers.
func NewNetworkFactory(fetcher HTTPFetcher, cache PriceCache, log zerolog.Logger) Factory {
	return func(ticker string) (Provider, error) {
		return &Network{
			ticker:  ticker,
			fetcher: fetcher,
			cache:   cache,
			log:     log.With().Str("component", "provider.Network").Str("ticker", ticker).Logger(),
		}, nil
	}
}

func (n *Network) GetPrices(start, end time.Time) ([]domain.Bar, error) {
	cached, err := n.cache.GetPrices(n.ticker)
	if err != nil {
		return nil, err
	}
	if covers(cached, start, end) {
		return sliceRange(cached, start, end), nil
	}

	n.log.Debug().Time("start", start).Time("end", end).Msg("fetching prices, cache miss")
	fetched, err := n.fetcher.FetchPrices(n.ticker, start, end)
	if err != nil {
		return nil, err
	}
	if err := n.cache.MergePrices(n.ticker, fetched); err != nil {
		return nil, err
	}

	merged, err := n.cache.GetPrices(n.ticker)
	if err != nil {
		return nil, err
	}
	return sliceRange(merged, start, end), nil
}

func (n *Network) GetDividends(start, end time.Time) ([]domain.DividendEvent, error) {
	cached, err := n.cache.GetDividends(n.ticker)
	if err != nil {
		return nil, err
	}
	if coversDividends(cached, start, end) {
		return sliceDividendRange(cached, start, end), nil
	}

	fetched, err := n.fetcher.FetchDividends(n.ticker, start, end)
	if err != nil {
		return nil, err
	}
	if err := n.cache.MergeDividends(n.ticker, fetched); err != nil {
		return nil, err
	}

	merged, err := n.cache.GetDividends(n.ticker)
	if err != nil {
		return nil, err
	}
	return sliceDividendRange(merged, start, end), nil
}

// covers reports whether bars already spans [start, end] without gaps at
// the boundary dates. It is a conservative check: it only looks at
// whether the first/last cached dates bracket the request, trading a rare
// unnecessary refetch (sparse cache, dense request) for simplicity.
func covers(bars []domain.Bar, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	first, last := bars[0].Date, bars[len(bars)-1].Date
	return !first.After(start) && !last.Before(end)
}

func sliceRange(bars []domain.Bar, start, end time.Time) []domain.Bar {
	var out []domain.Bar
	for _, b := range bars {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out
}

func coversDividends(divs []domain.DividendEvent, start, end time.Time) bool {
	if len(divs) == 0 {
		return false
	}
	first, last := divs[0].ExDate, divs[len(divs)-1].ExDate
	return !first.After(start) && !last.Before(end)
}

func sliceDividendRange(divs []domain.DividendEvent, start, end time.Time) []domain.DividendEvent {
	var out []domain.DividendEvent
	for _, d := range divs {
		if !d.ExDate.Before(start) && !d.ExDate.After(end) {
			out = append(out, d)
		}
	}
	return out
}
