package provider

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
	"github.com/sdbacktest/engine/internal/mockdata"
)

// Mock generates deterministic synthetic OHLC series from a ticker
// pattern, for use in tests and mathematical signposting without a real
// market-data dependency.
//
// Pattern grammar (spec §4.1, supplemented from the pack's mock generator):
//
//	MOCK-FLAT-{price}         flat price
//	MOCK-LINEAR-{start}-{end} linear interpolation over the range
//	MOCK-SINE-{base}-{amp}    four full cycles of a sine wave
//	MOCK-STEP-{start}-{step}  a step up every 30 days
//	MOCK-WALK-{start}         geometric random walk, zero-mean daily returns with 1% standard deviation
type Mock struct {
	ticker  string
	pattern string
	params  []float64
}

// NewMock parses ticker as a MOCK-* pattern. It is registered in the
// registry under the "MOCK-*" prefix pattern.
func NewMock(ticker string) (Provider, error) {
	parts := strings.Split(ticker, "-")
	if len(parts) < 2 || parts[0] != "MOCK" {
		return nil, fmt.Errorf("invalid mock ticker pattern: %s", ticker)
	}

	params := make([]float64, 0, len(parts)-2)
	for _, p := range parts[2:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mock parameter %q in %s: %w", p, ticker, err)
		}
		params = append(params, v)
	}

	return &Mock{ticker: ticker, pattern: strings.ToUpper(parts[1]), params: params}, nil
}

func (m *Mock) param(i int, def float64) float64 {
	if i < len(m.params) {
		return m.params[i]
	}
	return def
}

// seedFor derives a deterministic PRNG seed from s, mirroring the pack's
// ticker-hash seeding convention (there Python's builtin hash() + numpy's
// seed, reimplemented here with hash/fnv + math/rand since no numpy
// analogue exists in the Go ecosystem examples at hand).
func seedFor(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & 0x7fffffff)
}

func (m *Mock) closes(dates []time.Time) ([]float64, error) {
	n := len(dates)
	closes := make([]float64, n)

	switch m.pattern {
	case "FLAT":
		price := m.param(0, 100)
		for i := range closes {
			closes[i] = price
		}

	case "LINEAR":
		start := m.param(0, 100)
		end := m.param(1, 200)
		if n == 1 {
			closes[0] = start
			break
		}
		for i := range closes {
			closes[i] = start + (end-start)*float64(i)/float64(n-1)
		}

	case "SINE":
		base := m.param(0, 100)
		amp := m.param(1, 20)
		for i := range closes {
			t := float64(i) / float64(maxInt(n-1, 1)) * 4 * 2 * math.Pi
			closes[i] = base + amp*math.Sin(t)
		}
		closes = mockdata.Smooth(closes)

	case "STEP":
		start := m.param(0, 100)
		step := m.param(1, 10)
		for i := range closes {
			closes[i] = start + step*float64(i/30)
		}

	case "WALK":
		start := m.param(0, 100)
		rng := rand.New(rand.NewSource(seedFor(m.ticker)))
		closes[0] = start
		for i := 1; i < n; i++ {
			ret := rng.NormFloat64() * 0.01
			closes[i] = closes[i-1] * (1 + ret)
		}
		closes = mockdata.Smooth(closes)

	default:
		return nil, fmt.Errorf("unknown mock pattern: %s", m.pattern)
	}

	return closes, nil
}

func (m *Mock) GetPrices(start, end time.Time) ([]domain.Bar, error) {
	dates, err := dailyRange(start, end)
	if err != nil {
		return nil, err
	}

	closes, err := m.closes(dates)
	if err != nil {
		return nil, err
	}

	noiseRng := rand.New(rand.NewSource(seedFor(m.ticker + start.Format("2006-01-02"))))
	bars := make([]domain.Bar, len(dates))
	for i, d := range dates {
		noise := (noiseRng.Float64() - 0.5) * 0.01 // ±0.5%
		c := closes[i]
		bars[i] = domain.Bar{
			Date:  d,
			Open:  c * (1 - math.Abs(noise)/2),
			High:  c * (1 + math.Abs(noise)),
			Low:   c * (1 - math.Abs(noise)),
			Close: c,
		}
	}
	return bars, nil
}

// GetDividends always returns no events: mocks do not model cash
// distributions.
func (m *Mock) GetDividends(start, end time.Time) ([]domain.DividendEvent, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}
	return nil, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
