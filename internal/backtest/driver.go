// Package backtest implements the single-asset daily simulation loop:
// interest accrual, scheduled withdrawals, the algorithm hook, and the
// mark-to-market snapshot, in that order every day (spec §4.6).
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/bracket"
	"github.com/sdbacktest/engine/internal/domain"
	"github.com/sdbacktest/engine/internal/ledger"
	"github.com/sdbacktest/engine/internal/withdrawal"
)

// Snapshot is one day's mark-to-market record.
type Snapshot struct {
	Date       time.Time
	TotalValue float64
	Cash       float64
	AssetValue float64
}

// WithdrawalEvent records a single scheduled withdrawal.
type WithdrawalEvent struct {
	Date   time.Time
	Amount float64
}

// Params configures a single-asset Driver run.
type Params struct {
	Ticker         string
	InitialQty     float64
	Start, End     time.Time
	Algo           bracket.Algorithm
	SimpleMode     bool
	RiskFreeDaily  float64            // flat daily risk-free rate, used unless RiskFreeSeries is set
	RiskFreeSeries map[string]float64 // date (2006-01-02) -> daily rate
	WithdrawalRate float64            // percent/year as a decimal, e.g. 0.04
	WithdrawalDays int                // cadence in days; 0 disables withdrawals
	CPI            map[string]float64
}

// Summary is the full output of a Driver.Run call (spec §4.6).
type Summary struct {
	Ticker                              string
	StartDate, EndDate                  time.Time
	StartPrice, EndPrice                float64
	StartValue                          float64
	Holdings                            float64
	CashFinal                           float64
	CashMin, CashMax, CashAvg           float64
	DaysNegativeCash, DaysPositiveCash  int
	TotalValue                          float64
	TotalWithdrawn                      float64
	WithdrawalCount                     int
	TotalReturn                         float64
	AnnualizedReturn                    float64
	VolatilityAlpha                     float64
	Baseline                            BaselineSummary
	Snapshots                           []Snapshot
	Withdrawals                         []WithdrawalEvent
}

// BaselineSummary is the automatically-computed buy-and-hold reference.
type BaselineSummary struct {
	EndValue    float64
	TotalReturn float64
	Annualized  float64
}

// Driver runs the daily simulation loop for one asset.
type Driver struct {
	log zerolog.Logger
}

// NewDriver builds a Driver.
func NewDriver(log zerolog.Logger) *Driver {
	return &Driver{log: log.With().Str("component", "backtest.Driver").Logger()}
}

// Run executes the full lifecycle over bars, which must be sorted
// ascending and already trimmed to [params.Start, params.End].
func (d *Driver) Run(params Params, bars []domain.Bar) (Summary, error) {
	if len(bars) == 0 {
		return Summary{}, fmt.Errorf("%w: no bars for %s", domain.ErrInvalidDateRange, params.Ticker)
	}

	holding := ledger.NewHolding(params.Ticker)
	cash := 0.0

	first := bars[0]
	holding.AddBuy(params.InitialQty, first.Date, first.Close, "initial buy")
	holdings := params.InitialQty
	params.Algo.OnNewHoldings(holdings, first.Close)

	startValue := params.InitialQty * first.Close
	sched := withdrawal.Schedule{AnnualRate: params.WithdrawalRate, CadenceDays: params.WithdrawalDays, CPI: params.CPI}

	var snapshots []Snapshot
	var withdrawals []WithdrawalEvent
	lastWithdrawal := first.Date

	var cashSamples []float64
	var daysNeg, daysPos int

	for i := 1; i < len(bars); i++ {
		bar := bars[i]

		if !params.SimpleMode {
			rate := dailyRate(params, bar.Date)
			cash += cash * rate
		}

		if sched.Due(lastWithdrawal, bar.Date) {
			amount := sched.Amount(startValue, first.Date, bar.Date)
			cash -= amount
			withdrawals = append(withdrawals, WithdrawalEvent{Date: bar.Date, Amount: amount})
			lastWithdrawal = bar.Date
		}

		if tx := params.Algo.OnDay(bar, holdings, cash, bars[:i]); tx != nil {
			switch tx.Action {
			case bracket.Sell:
				qty := tx.Qty
				if qty > holdings {
					qty = holdings
				}
				if qty > 0 {
					sel, _ := ledger.NewSelector(ledger.FIFO)
					if _, err := holding.AddSell(qty, bar.Date, bar.Close, tx.Notes, sel); err == nil {
						holdings -= qty
						cash += qty * bar.Close
					}
				}
			case bracket.Buy:
				qty := tx.Qty
				if qty > 0 {
					holding.AddBuy(qty, bar.Date, bar.Close, tx.Notes)
					holdings += qty
					cash -= qty * bar.Close
				}
			}
		}

		assetValue := holdings * bar.Close
		snapshots = append(snapshots, Snapshot{
			Date:       bar.Date,
			TotalValue: assetValue + cash,
			Cash:       cash,
			AssetValue: assetValue,
		})
		cashSamples = append(cashSamples, cash)
		if cash < 0 {
			daysNeg++
		} else {
			daysPos++
		}
	}

	params.Algo.OnEndHolding()

	last := bars[len(bars)-1]
	endValue := holdings * last.Close
	total := cash + endValue

	days := last.Date.Sub(first.Date).Hours() / 24
	years := days / 365.25

	totalReturn := safeDivReturn(total, startValue)
	annualized := annualize(total, startValue, years)

	baselineEndValue := params.InitialQty * last.Close
	baselineReturn := safeDivReturn(baselineEndValue, startValue)
	baselineAnnualized := annualize(baselineEndValue, startValue, years)

	var totalWithdrawn float64
	for _, w := range withdrawals {
		totalWithdrawn += w.Amount
	}

	return Summary{
		Ticker:           params.Ticker,
		StartDate:        first.Date,
		EndDate:          last.Date,
		StartPrice:       first.Close,
		EndPrice:         last.Close,
		StartValue:       startValue,
		Holdings:         holdings,
		CashFinal:        cash,
		CashMin:          minOf(cashSamples),
		CashMax:          maxOf(cashSamples),
		CashAvg:          avgOf(cashSamples),
		DaysNegativeCash: daysNeg,
		DaysPositiveCash: daysPos,
		TotalValue:       total,
		TotalWithdrawn:   totalWithdrawn,
		WithdrawalCount:  len(withdrawals),
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		VolatilityAlpha:  totalReturn - baselineReturn,
		Baseline: BaselineSummary{
			EndValue:    baselineEndValue,
			TotalReturn: baselineReturn,
			Annualized:  baselineAnnualized,
		},
		Snapshots:   snapshots,
		Withdrawals: withdrawals,
	}, nil
}

func dailyRate(params Params, date time.Time) float64 {
	if params.RiskFreeSeries != nil {
		if r, ok := params.RiskFreeSeries[date.Format("2006-01-02")]; ok {
			return r
		}
	}
	return params.RiskFreeDaily
}

func safeDivReturn(total, start float64) float64 {
	if start == 0 {
		return 0
	}
	return (total - start) / start
}

func annualize(total, start, years float64) float64 {
	if years <= 0 || start <= 0 {
		return 0
	}
	return math.Pow(total/start, 1/years) - 1
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func avgOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
