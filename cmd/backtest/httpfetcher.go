package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
)

// jsonFetcher is the one concrete provider.HTTPFetcher implementation
// the CLI ships: a caller-configured base URL serving bars/dividends as
// JSON, so the core engine still never imports a market-data SDK
// directly (spec C1) while the CLI remains runnable against real data
// without vendoring one. Unconfigured (baseURL == "") calls always
// error, since no data source is in scope by spec's Non-goals.
type jsonFetcher struct {
	baseURL string
	client  *http.Client
}

func newJSONFetcher(baseURL string) *jsonFetcher {
	return &jsonFetcher{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *jsonFetcher) FetchPrices(ticker string, start, end time.Time) ([]domain.Bar, error) {
	if f.baseURL == "" {
		return nil, fmt.Errorf("no data source configured: set -data-url to fetch %s", ticker)
	}

	var bars []domain.Bar
	if err := f.getJSON("/prices", ticker, start, end, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (f *jsonFetcher) FetchDividends(ticker string, start, end time.Time) ([]domain.DividendEvent, error) {
	if f.baseURL == "" {
		return nil, fmt.Errorf("no data source configured: set -data-url to fetch dividends for %s", ticker)
	}

	var divs []domain.DividendEvent
	if err := f.getJSON("/dividends", ticker, start, end, &divs); err != nil {
		return nil, err
	}
	return divs, nil
}

func (f *jsonFetcher) getJSON(path, ticker string, start, end time.Time, out interface{}) error {
	q := url.Values{}
	q.Set("ticker", ticker)
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))

	resp, err := f.client.Get(f.baseURL + path + "?" + q.Encode())
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
