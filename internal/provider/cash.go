package provider

import (
	"time"

	"github.com/sdbacktest/engine/internal/domain"
)

// Cash is the degenerate provider for a riskless cash position: every bar
// is flat at 1.0 and no dividends are ever paid.
type Cash struct{}

// NewCash builds a Cash provider. It ignores the ticker argument that the
// registry Factory signature requires.
func NewCash(string) (Provider, error) {
	return Cash{}, nil
}

func (Cash) GetPrices(start, end time.Time) ([]domain.Bar, error) {
	dates, err := dailyRange(start, end)
	if err != nil {
		return nil, err
	}
	bars := make([]domain.Bar, len(dates))
	for i, d := range dates {
		bars[i] = domain.Bar{Date: d, Open: 1, High: 1, Low: 1, Close: 1}
	}
	return bars, nil
}

func (Cash) GetDividends(_, _ time.Time) ([]domain.DividendEvent, error) {
	return nil, nil
}
