// Package portfolio aggregates per-ticker ledger.Holding instances into a
// multi-asset portfolio and adds account-level debt/cash tracking on top
// (spec §4.4).
package portfolio

import (
	"fmt"
	"math"

	"github.com/sdbacktest/engine/internal/ledger"
)

// Portfolio is a collection of holdings keyed by ticker. All portfolio-level
// state (total value) derives from the underlying holdings; nothing is
// cached here.
type Portfolio struct {
	Holdings map[string]*ledger.Holding
}

// New creates an empty portfolio.
func New() *Portfolio {
	return &Portfolio{Holdings: make(map[string]*ledger.Holding)}
}

// Holding returns the holding for ticker, creating it if absent.
func (p *Portfolio) Holding(ticker string) *ledger.Holding {
	h, ok := p.Holdings[ticker]
	if !ok {
		h = ledger.NewHolding(ticker)
		p.Holdings[ticker] = h
	}
	return h
}

// TotalValue sums MarketValue across every holding, using prices for the
// current price of each ticker. A ticker held but missing from prices
// contributes zero and is reported via the returned slice of tickers.
func (p *Portfolio) TotalValue(prices map[string]float64) (float64, []string) {
	var total float64
	var missing []string
	for ticker, h := range p.Holdings {
		price, ok := prices[ticker]
		if !ok {
			if h.CurrentShares() > 0 {
				missing = append(missing, ticker)
			}
			continue
		}
		total += h.MarketValue(price)
	}
	return total, missing
}

// Account wraps a Portfolio with signed debt tracking: positive debt is
// money borrowed (margin), negative debt is a cash surplus.
type Account struct {
	Portfolio   *Portfolio
	Debt        float64
	DebtHistory []DebtEntry
}

// DebtEntry records a debt-balance snapshot after a borrow/repay/deposit/
// withdraw event, for statistics over the account's history.
type DebtEntry struct {
	Date    string
	Balance float64
}

// NewAccount creates an account with an empty portfolio and zero debt.
func NewAccount() *Account {
	return &Account{Portfolio: New()}
}

func (a *Account) adjustDebt(delta float64, date string) {
	a.Debt += delta
	a.DebtHistory = append(a.DebtHistory, DebtEntry{Date: date, Balance: a.Debt})
}

// Borrow increases debt by amount (amount must be positive).
func (a *Account) Borrow(amount float64, date string) error {
	if amount <= 0 {
		return fmt.Errorf("borrow amount must be positive, got %.4f", amount)
	}
	a.adjustDebt(amount, date)
	return nil
}

// Repay decreases debt by amount (amount must be positive).
func (a *Account) Repay(amount float64, date string) error {
	if amount <= 0 {
		return fmt.Errorf("repay amount must be positive, got %.4f", amount)
	}
	a.adjustDebt(-amount, date)
	return nil
}

// DepositCash reduces debt (or grows a cash surplus) by amount.
func (a *Account) DepositCash(amount float64, date string) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %.4f", amount)
	}
	a.adjustDebt(-amount, date)
	return nil
}

// WithdrawCash increases debt (or consumes a cash surplus) by amount.
func (a *Account) WithdrawCash(amount float64, date string) error {
	if amount <= 0 {
		return fmt.Errorf("withdraw amount must be positive, got %.4f", amount)
	}
	a.adjustDebt(amount, date)
	return nil
}

// CashBalance is the inverse of Debt: positive means cash on hand.
func (a *Account) CashBalance() float64 {
	return -a.Debt
}

// HasMarginDebt reports whether the account currently owes money.
func (a *Account) HasMarginDebt() bool {
	return a.Debt > 0
}

// NetWorth is portfolio value minus debt, given current prices.
func (a *Account) NetWorth(prices map[string]float64) (float64, []string) {
	value, missing := a.Portfolio.TotalValue(prices)
	return value - a.Debt, missing
}

// LeverageRatio is PortfolioValue/NetWorth, or +Inf when NetWorth <= 0
// (spec §4.4).
func (a *Account) LeverageRatio(prices map[string]float64) (float64, []string) {
	value, missing := a.Portfolio.TotalValue(prices)
	net := value - a.Debt
	if net <= 0 {
		return math.Inf(1), missing
	}
	return value / net, missing
}
