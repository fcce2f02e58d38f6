package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sdbacktest/engine/internal/domain"
	"github.com/sdbacktest/engine/internal/provider"
)

// newFixtureFactory returns a provider.Factory backing the static
// provider with caller-supplied JSON fixtures under dir:
// <ticker>.json (bars) and <ticker>.dividends.json (optional).
// Registered under the "FIXTURE-*" pattern so fixture tickers never
// collide with real-market or mock tickers.
func newFixtureFactory(dir string) provider.Factory {
	return func(ticker string) (provider.Provider, error) {
		bars, err := loadBarFixture(filepath.Join(dir, ticker+".json"))
		if err != nil {
			return nil, fmt.Errorf("loading fixture for %s: %w", ticker, err)
		}

		divs, err := loadDividendFixture(filepath.Join(dir, ticker+".dividends.json"))
		if err != nil {
			return nil, fmt.Errorf("loading dividend fixture for %s: %w", ticker, err)
		}

		return provider.NewStatic(bars, divs), nil
	}
}

func loadBarFixture(path string) ([]domain.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars []domain.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return bars, nil
}

func loadDividendFixture(path string) ([]domain.DividendEvent, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var divs []domain.DividendEvent
	if err := json.Unmarshal(data, &divs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return divs, nil
}
