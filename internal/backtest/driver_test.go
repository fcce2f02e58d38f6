package backtest

import (
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

func flatBars(start string, n int, price float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	d0 := d(start)
	for i := 0; i < n; i++ {
		bars[i] = domain.Bar{Date: d0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

func TestDriver_BuyAndHold_FlatMarket(t *testing.T) {
	drv := NewDriver(zerolog.Nop())
	bars := flatBars("2024-01-01", 10, 100)

	summary, err := drv.Run(Params{
		Ticker:     "MOCK-FLAT-100",
		InitialQty: 10,
		Algo:       bracket.BuyAndHold{},
		SimpleMode: true,
	}, bars)

	require.NoError(t, err)
	assert.Equal(t, 10.0, summary.Holdings)
	assert.InDelta(t, 0.0, summary.TotalReturn, 0.0001)
	assert.Equal(t, 0, summary.WithdrawalCount)
}

func TestDriver_EmptyBarsErrors(t *testing.T) {
	drv := NewDriver(zerolog.Nop())
	_, err := drv.Run(Params{Ticker: "X", InitialQty: 1, Algo: bracket.BuyAndHold{}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestDriver_WithdrawalsReduceCash(t *testing.T) {
	drv := NewDriver(zerolog.Nop())
	bars := flatBars("2024-01-01", 40, 100)

	summary, err := drv.Run(Params{
		Ticker:         "MOCK-FLAT-100",
		InitialQty:     10,
		Algo:           bracket.BuyAndHold{},
		SimpleMode:     true,
		WithdrawalRate: 0.04,
		WithdrawalDays: 30,
	}, bars)

	require.NoError(t, err)
	assert.Greater(t, summary.WithdrawalCount, 0)
	assert.Less(t, summary.CashFinal, 0.0)
}

func TestDriver_WithdrawalCPIForwardFillsMonthlySeries(t *testing.T) {
	// CPI published on the 1st of each month, bars daily: every
	// withdrawal date between CPI entries must forward-fill to the
	// most recent known index rather than scale to zero.
	drv := NewDriver(zerolog.Nop())
	bars := flatBars("2024-01-01", 60, 100)

	cpi := map[string]float64{
		"2024-01-01": 300.0,
		"2024-02-01": 303.0,
	}

	summary, err := drv.Run(Params{
		Ticker:         "MOCK-FLAT-100",
		InitialQty:     10,
		Algo:           bracket.BuyAndHold{},
		SimpleMode:     true,
		WithdrawalRate: 0.04,
		WithdrawalDays: 30,
		CPI:            cpi,
	}, bars)

	require.NoError(t, err)
	require.Greater(t, summary.WithdrawalCount, 0)
	for _, w := range summary.Withdrawals {
		assert.Greater(t, w.Amount, 0.0)
	}
}

func TestDriver_BracketLadderTradesOnVolatility(t *testing.T) {
	drv := NewDriver(zerolog.Nop())

	bars := []domain.Bar{
		{Date: d("2024-01-01"), Open: 100, High: 100, Low: 100, Close: 100},
		{Date: d("2024-01-02"), Open: 112, High: 115, Low: 108, Close: 110},
		{Date: d("2024-01-03"), Open: 88, High: 92, Low: 85, Close: 90},
	}

	algo := bracket.NewFull(0.10, 0.5, 0)
	summary, err := drv.Run(Params{
		Ticker:     "MOCK-STEP",
		InitialQty: 1000,
		Algo:       algo,
		SimpleMode: true,
	}, bars)

	require.NoError(t, err)
	assert.NotEqual(t, 1000.0, summary.Holdings)
}
