package bracket

import (
	"math"

	"github.com/sdbacktest/engine/internal/domain"
)

// BuybackRecord is an audit entry pushed each time the full ladder fills
// a sell order, so the sequence of sell events that can later be
// unwound by buybacks is visible after the run (spec §4.5's
// "buyback_stack" state field).
type BuybackRecord struct {
	Date  string
	Price float64
	Qty   float64
}

// Full implements the complete bracket-ladder algorithm: symmetric
// buy/sell limit orders, re-armed after every fill, with no restriction
// on how many times a bracket can be revisited.
type Full struct {
	R        float64 // rebalance fraction
	S        float64 // profit-sharing ratio
	Seed     float64 // optional ladder seed; 0 disables snapping
	lastTxn  float64
	orders   Orders
	volAlpha float64
	buybacks []BuybackRecord
}

// NewFull constructs a Full algorithm with rebalance fraction r and
// profit-sharing s. seed of 0 disables ladder-seed snapping.
func NewFull(r, s, seed float64) *Full {
	return &Full{R: r, S: s, Seed: seed}
}

// VolatilityAlpha returns the accumulated realized-volatility-alpha
// contribution across every buy fill so far.
func (f *Full) VolatilityAlpha() float64 { return f.volAlpha }

// Buybacks returns the audit trail of sells recorded by this run.
func (f *Full) Buybacks() []BuybackRecord { return f.buybacks }

func (f *Full) placeOrders(holdings, price float64) {
	p := price
	if f.Seed > 0 {
		p = SnapToLadder(p, f.Seed, f.R)
	}
	f.lastTxn = p
	f.orders = SizingOrders(holdings, p, f.R, f.S)
}

func (f *Full) OnNewHoldings(holdings, price float64) {
	f.placeOrders(holdings, price)
}

func (f *Full) OnDay(bar domain.Bar, holdings, _ float64, _ []domain.Bar) *Transaction {
	if !bar.Valid() {
		return nil
	}

	// Buy check precedes sell check (spec §4.5): biases toward
	// accumulation on the rare day both limits gap through.
	if bar.Low <= f.orders.NextBuyPrice {
		fill := math.Min(f.orders.NextBuyPrice, bar.Open)
		qty := f.orders.NextBuyQty
		if holdings > 0 && fill > 0 {
			f.volAlpha += (f.lastTxn - fill) * qty / (holdings * fill)
		}
		f.placeOrders(holdings+qty, fill)
		return &Transaction{Action: Buy, Qty: qty, Notes: "bracket buy fill"}
	}

	if bar.High >= f.orders.NextSellPrice {
		fill := math.Max(f.orders.NextSellPrice, bar.Open)
		qty := f.orders.NextSellQty
		f.buybacks = append(f.buybacks, BuybackRecord{Date: bar.Date.Format("2006-01-02"), Price: fill, Qty: qty})
		f.placeOrders(holdings-qty, fill)
		return &Transaction{Action: Sell, Qty: qty, Notes: "bracket sell fill"}
	}

	return nil
}

func (f *Full) OnEndHolding() {}

// ATHOnly sells at new all-time highs but never repurchases on dips. It
// serves as the baseline that isolates "synthetic alpha" (ATH-only minus
// buy-and-hold) from "volatility alpha" (Full minus ATH-only).
type ATHOnly struct {
	R, S    float64
	athHigh float64
	lastTxn float64
	orders  Orders
}

// NewATHOnly constructs an ATHOnly algorithm with rebalance fraction r
// and profit-sharing s.
func NewATHOnly(r, s float64) *ATHOnly {
	return &ATHOnly{R: r, S: s}
}

func (a *ATHOnly) placeOrders(holdings, price float64) {
	a.lastTxn = price
	a.orders = SizingOrders(holdings, price, a.R, a.S)
}

func (a *ATHOnly) OnNewHoldings(holdings, price float64) {
	a.athHigh = price
	a.placeOrders(holdings, price)
}

func (a *ATHOnly) OnDay(bar domain.Bar, holdings, _ float64, _ []domain.Bar) *Transaction {
	if !bar.Valid() || bar.High <= a.athHigh {
		return nil
	}
	a.athHigh = bar.High

	if bar.High < a.orders.NextSellPrice {
		return nil
	}

	fill := math.Max(a.orders.NextSellPrice, bar.Open)
	qty := a.orders.NextSellQty
	a.placeOrders(holdings-qty, fill)
	return &Transaction{Action: Sell, Qty: qty, Notes: "ath-only sell fill"}
}

func (a *ATHOnly) OnEndHolding() {}
