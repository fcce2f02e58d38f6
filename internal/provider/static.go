package provider

import (
	"sort"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
)

// Static serves a fixed, caller-supplied set of bars and dividends. It
// exists for tests and for callers that already have data in hand (e.g.
// loaded from a file outside the cache) and want to inject it through the
// same Provider interface the rest of the engine consumes.
type Static struct {
	bars []domain.Bar
	divs []domain.DividendEvent
}

// NewStatic builds a Static provider over bars/divs, sorted ascending by
// date so range queries return results in date order.
func NewStatic(bars []domain.Bar, divs []domain.DividendEvent) *Static {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	sortedDivs := make([]domain.DividendEvent, len(divs))
	copy(sortedDivs, divs)
	sort.Slice(sortedDivs, func(i, j int) bool { return sortedDivs[i].ExDate.Before(sortedDivs[j].ExDate) })

	return &Static{bars: sorted, divs: sortedDivs}
}

func (s *Static) GetPrices(start, end time.Time) ([]domain.Bar, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}
	var out []domain.Bar
	for _, b := range s.bars {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Static) GetDividends(start, end time.Time) ([]domain.DividendEvent, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}
	var out []domain.DividendEvent
	for _, d := range s.divs {
		if !d.ExDate.Before(start) && !d.ExDate.After(end) {
			out = append(out, d)
		}
	}
	return out, nil
}
