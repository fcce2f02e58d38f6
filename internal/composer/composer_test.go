package composer

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/bracket"
	"github.com/sdbacktest/engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// fakeSource serves pre-built flat bar series per ticker, so the
// composer's fan-out fetch and SELL/BUY-pass ordering can be tested
// without a real provider.
type fakeSource struct {
	bars map[string][]domain.Bar
}

func (f *fakeSource) GetPrices(ticker string, start, end time.Time) ([]domain.Bar, error) {
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, domain.ErrPriceMissing
	}
	return bars, nil
}

func flatBars(start time.Time, n int, price float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = domain.Bar{Date: start.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

func TestComposer_Run_AllocatesByWeight(t *testing.T) {
	source := &fakeSource{bars: map[string][]domain.Bar{
		"VOO": flatBars(d("2024-01-01"), 10, 100),
		"BND": flatBars(d("2024-01-01"), 10, 50),
	}}
	c := New(source, zerolog.Nop())

	params := Params{
		Assets: []Asset{
			{Ticker: "VOO", Weight: 0.6, AlgoFactory: func() bracket.Algorithm { return bracket.BuyAndHold{} }},
			{Ticker: "BND", Weight: 0.4, AlgoFactory: func() bracket.Algorithm { return bracket.BuyAndHold{} }},
		},
		InitialCash: 10000,
		Start:       d("2024-01-01"),
		End:         d("2024-01-10"),
	}

	result, err := c.Run(context.Background(), params)
	require.NoError(t, err)

	voo := result.Account.Portfolio.Holding("VOO")
	bnd := result.Account.Portfolio.Holding("BND")
	assert.InDelta(t, 60.0, voo.CurrentShares(), 1) // 6000/100
	assert.InDelta(t, 80.0, bnd.CurrentShares(), 1) // 4000/50
	assert.NotEmpty(t, result.Snapshots)
}

func TestComposer_Run_RejectsBadWeights(t *testing.T) {
	source := &fakeSource{bars: map[string][]domain.Bar{
		"VOO": flatBars(d("2024-01-01"), 5, 100),
	}}
	c := New(source, zerolog.Nop())

	params := Params{
		Assets: []Asset{
			{Ticker: "VOO", Weight: 0.5, AlgoFactory: func() bracket.Algorithm { return bracket.BuyAndHold{} }},
		},
		InitialCash: 1000,
		Start:       d("2024-01-01"),
		End:         d("2024-01-05"),
	}

	_, err := c.Run(context.Background(), params)
	assert.ErrorIs(t, err, domain.ErrAllocationSumInvalid)
}

func TestComposer_Run_MarginDisabledSkipsBuyWhenCashShort(t *testing.T) {
	// A single asset funded at 100% weight but whose ladder algorithm
	// would buy more than available cash allows; with margin disabled
	// the buy should be skipped without erroring, per spec's
	// margin-disabled BUY skip semantics.
	// 10 shares at 100 use all the cash; day 1 dips through the 90.91
	// buy limit, so the ladder asks for 1 share it cannot pay for.
	bars := flatBars(d("2024-01-01"), 5, 90)
	bars[0] = domain.Bar{Date: bars[0].Date, Open: 100, High: 100, Low: 100, Close: 100}
	bars[1] = domain.Bar{Date: bars[1].Date, Open: 88, High: 92, Low: 85, Close: 90}
	source := &fakeSource{bars: map[string][]domain.Bar{"VOO": bars}}
	c := New(source, zerolog.Nop())

	params := Params{
		Assets: []Asset{
			{Ticker: "VOO", Weight: 1.0, AlgoFactory: func() bracket.Algorithm { return bracket.NewFull(0.10, 0.5, 0) }},
		},
		InitialCash: 1000,
		Start:       d("2024-01-01"),
		End:         d("2024-01-05"),
		AllowMargin: false,
	}

	result, err := c.Run(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, result.Account.HasMarginDebt())
	assert.Equal(t, 10.0, result.Account.Portfolio.Holding("VOO").CurrentShares())
}

func TestComposer_Run_AccruesInterestOnIdleCash(t *testing.T) {
	// Half the cash is allocated, leaving the rest idle; with
	// CashInterestRate set, that idle cash should compound daily
	// (spec §4.7/§8 scenario 6: final value matches shares at end
	// price plus accrued interest).
	source := &fakeSource{bars: map[string][]domain.Bar{
		"VOO": flatBars(d("2024-01-01"), 30, 100),
	}}
	c := New(source, zerolog.Nop())

	params := Params{
		Assets: []Asset{
			{Ticker: "VOO", Weight: 1.0, AlgoFactory: func() bracket.Algorithm { return bracket.BuyAndHold{} }},
		},
		InitialCash:      1050, // buys 10 shares at 100, leaves 50 idle
		Start:            d("2024-01-01"),
		End:              d("2024-01-30"),
		CashInterestRate: 0.05,
	}

	result, err := c.Run(context.Background(), params)
	require.NoError(t, err)
	assert.Greater(t, result.Account.CashBalance(), 50.0)
}

func TestComposer_Run_WithdrawsOnCadenceWithoutCPI(t *testing.T) {
	// No CPI series is wired into the composer's withdrawal schedule,
	// so an unscaled withdrawal amount should simply come out on the
	// configured cadence without erroring.
	source := &fakeSource{bars: map[string][]domain.Bar{
		"VOO": flatBars(d("2024-01-01"), 40, 100),
	}}
	c := New(source, zerolog.Nop())

	params := Params{
		Assets: []Asset{
			{Ticker: "VOO", Weight: 1.0, AlgoFactory: func() bracket.Algorithm { return bracket.BuyAndHold{} }},
		},
		InitialCash:    1000,
		Start:          d("2024-01-01"),
		End:            d("2024-02-10"),
		WithdrawalRate: 0.04,
		WithdrawalDays: 30,
	}

	result, err := c.Run(context.Background(), params)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Withdrawals)
}
