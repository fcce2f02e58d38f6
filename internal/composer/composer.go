// Package composer runs a multi-asset backtest sharing one cash account
// across tickers, with concurrent historical-price warm-up fetches
// (spec §4.7).
package composer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/bracket"
	"github.com/sdbacktest/engine/internal/domain"
	"github.com/sdbacktest/engine/internal/ledger"
	"github.com/sdbacktest/engine/internal/portfolio"
	"github.com/sdbacktest/engine/internal/withdrawal"
	"golang.org/x/sync/errgroup"
)

// PriceSource resolves a ticker's bars over a date range; satisfied by
// provider.Registry-resolved providers.
type PriceSource interface {
	GetPrices(ticker string, start, end time.Time) ([]domain.Bar, error)
}

// Asset is one allocated position in the composed portfolio.
type Asset struct {
	Ticker     string
	Weight     float64
	AlgoFactory func() bracket.Algorithm
}

// Params configures a Composer run.
type Params struct {
	Assets           []Asset
	InitialCash      float64
	Start, End       time.Time
	AllowMargin      bool
	WithdrawalRate   float64
	WithdrawalDays   int
	CashInterestRate float64 // annual rate as a decimal, e.g. 0.05; 0 disables accrual
}

// Result is the output of a Composer run.
type Result struct {
	Account     *portfolio.Account
	Snapshots   []DailySnapshot
	Withdrawals []float64
}

// DailySnapshot is one day's portfolio-wide mark-to-market record.
type DailySnapshot struct {
	Date       time.Time
	Cash       float64
	TotalValue float64
}

// Composer drives a multi-asset backtest.
type Composer struct {
	source PriceSource
	log    zerolog.Logger
}

// New builds a Composer over source.
func New(source PriceSource, log zerolog.Logger) *Composer {
	return &Composer{source: source, log: log.With().Str("component", "composer.Composer").Logger()}
}

// fetchAll concurrently retrieves each asset's bars via errgroup, since
// this warm-up step is the one place ahead of the strictly sequential
// simulation where I/O-bound concurrency pays for itself.
func (c *Composer) fetchAll(ctx context.Context, assets []Asset, start, end time.Time) (map[string][]domain.Bar, error) {
	results := make(map[string][]domain.Bar, len(assets))
	g, _ := errgroup.WithContext(ctx)

	type fetched struct {
		ticker string
		bars   []domain.Bar
	}
	out := make(chan fetched, len(assets))

	for _, a := range assets {
		a := a
		g.Go(func() error {
			bars, err := c.source.GetPrices(a.Ticker, start, end)
			if err != nil {
				return fmt.Errorf("fetching prices for %s: %w", a.Ticker, err)
			}
			out <- fetched{ticker: a.Ticker, bars: bars}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(out)
	for f := range out {
		results[f.ticker] = f.bars
	}
	return results, nil
}

// Run executes the composed multi-asset simulation per spec §4.7: each
// day, SELL pass across assets, then BUY pass, then the shared
// withdrawal, then shared cash interest, then the portfolio-wide
// snapshot.
func (c *Composer) Run(ctx context.Context, p Params) (Result, error) {
	if err := validateWeights(p.Assets); err != nil {
		return Result{}, err
	}

	priceHistory, err := c.fetchAll(ctx, p.Assets, p.Start, p.End)
	if err != nil {
		return Result{}, err
	}

	account := portfolio.NewAccount()
	algos := make(map[string]bracket.Algorithm, len(p.Assets))

	firstDate := p.End
	for _, a := range p.Assets {
		bars := priceHistory[a.Ticker]
		if len(bars) == 0 {
			return Result{}, fmt.Errorf("%w: no prices for %s", domain.ErrPriceMissing, a.Ticker)
		}
		if bars[0].Date.Before(firstDate) {
			firstDate = bars[0].Date
		}
	}

	sel, _ := ledger.NewSelector(ledger.FIFO)

	for _, a := range p.Assets {
		bars := priceHistory[a.Ticker]
		startPrice := bars[0].Close
		qty := math.Floor(a.Weight * p.InitialCash / startPrice)
		if qty > 0 {
			account.Portfolio.Holding(a.Ticker).AddBuy(qty, bars[0].Date, startPrice, "initial allocation")
			account.Debt += qty * startPrice
		}
		algos[a.Ticker] = a.AlgoFactory()
		algos[a.Ticker].OnNewHoldings(qty, startPrice)
	}
	account.Debt -= p.InitialCash // initial cash envelope funds the allocation

	maxLen := 0
	for _, bars := range priceHistory {
		if len(bars) > maxLen {
			maxLen = len(bars)
		}
	}

	var snapshots []DailySnapshot
	var withdrawals []float64
	lastWithdrawal := firstDate
	sched := withdrawal.Schedule{AnnualRate: p.WithdrawalRate, CadenceDays: p.WithdrawalDays}

	for day := 1; day < maxLen; day++ {
		var date time.Time
		for _, a := range p.Assets {
			bars := priceHistory[a.Ticker]
			if day < len(bars) {
				date = bars[day].Date
				break
			}
		}
		if date.IsZero() {
			continue
		}

		order := make([]Asset, len(p.Assets))
		copy(order, p.Assets)
		sort.SliceStable(order, func(i, j int) bool { return order[i].Ticker < order[j].Ticker })

		pendingBuys := make(map[string]*bracket.Transaction)

		// SELL pass first across all assets (spec §4.7), then BUY pass,
		// preserving the non-negative-cash invariant without lookahead.
		for _, a := range order {
			bars := priceHistory[a.Ticker]
			if day >= len(bars) {
				continue
			}
			holding := account.Portfolio.Holding(a.Ticker)
			tx := algos[a.Ticker].OnDay(bars[day], holding.CurrentShares(), account.CashBalance(), bars[:day])
			if tx == nil {
				continue
			}
			if tx.Action == bracket.Sell {
				qty := tx.Qty
				if qty > holding.CurrentShares() {
					qty = holding.CurrentShares()
				}
				if qty > 0 {
					if _, err := holding.AddSell(qty, bars[day].Date, bars[day].Close, tx.Notes, sel); err == nil {
						account.Debt -= qty * bars[day].Close
					}
				}
			} else {
				pendingBuys[a.Ticker] = tx
			}
		}

		for _, a := range order {
			tx, ok := pendingBuys[a.Ticker]
			if !ok {
				continue
			}
			bars := priceHistory[a.Ticker]
			cost := tx.Qty * bars[day].Close
			if !p.AllowMargin && account.CashBalance()-cost < 0 {
				continue // skip: algorithm stays armed at the same limit
			}
			account.Portfolio.Holding(a.Ticker).AddBuy(tx.Qty, bars[day].Date, bars[day].Close, tx.Notes)
			account.Debt += cost
		}

		if sched.Due(lastWithdrawal, date) {
			amount := sched.Amount(p.InitialCash, firstDate, date)
			account.Debt += amount
			withdrawals = append(withdrawals, amount)
			lastWithdrawal = date
		}

		if p.CashInterestRate != 0 {
			dailyRate := p.CashInterestRate / 365.25
			account.Debt += account.Debt * dailyRate
		}

		prices := make(map[string]float64, len(p.Assets))
		for _, a := range p.Assets {
			bars := priceHistory[a.Ticker]
			idx := day
			if idx >= len(bars) {
				idx = len(bars) - 1
			}
			prices[a.Ticker] = bars[idx].Close
		}
		total, _ := account.Portfolio.TotalValue(prices)
		snapshots = append(snapshots, DailySnapshot{Date: date, Cash: account.CashBalance(), TotalValue: total + account.CashBalance()})
	}

	for _, a := range p.Assets {
		algos[a.Ticker].OnEndHolding()
	}

	return Result{Account: account, Snapshots: snapshots, Withdrawals: withdrawals}, nil
}

func validateWeights(assets []Asset) error {
	var sum float64
	for _, a := range assets {
		sum += a.Weight
	}
	if math.Abs(sum-1) > 0.01 {
		return fmt.Errorf("%w: weights sum to %.4f", domain.ErrAllocationSumInvalid, sum)
	}
	return nil
}
