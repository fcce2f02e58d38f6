// Package bracket implements the bracket-ladder trading algorithm: the
// symmetric order-sizing law, ladder-seed normalization, gap-aware daily
// fill rules, and the buy-and-hold / full-ladder / ATH-only variants
// (spec §4.5).
package bracket

import (
	"math"

	"github.com/sdbacktest/engine/internal/domain"
)

// Orders is the pair of standing limit orders an armed bracket maintains.
type Orders struct {
	NextBuyPrice  float64
	NextBuyQty    float64
	NextSellPrice float64
	NextSellQty   float64
}

// SizingOrders computes the symmetric next-buy/next-sell limit orders
// from current holdings H, the last transaction price P*, the rebalance
// fraction r, and the profit-sharing ratio s (spec §4.5).
func SizingOrders(holdings, lastTxnPrice, r, s float64) Orders {
	return Orders{
		NextBuyPrice:  lastTxnPrice / (1 + r),
		NextBuyQty:    roundHalfAwayFromZero(r * holdings * s),
		NextSellPrice: lastTxnPrice * (1 + r),
		NextSellQty:   roundHalfAwayFromZero(r * holdings * s / (1 + r)),
	}
}

func roundHalfAwayFromZero(x float64) float64 {
	if x >= 0 {
		return math.Floor(x + 0.5)
	}
	return math.Ceil(x - 0.5)
}

// SnapToLadder snaps price to the nearest seed*(1+r)^n bracket, so
// independent runs sharing (seed, r) land on identical limit prices
// (spec §4.5).
func SnapToLadder(price, seed, r float64) float64 {
	if seed <= 0 || price <= 0 || r <= 0 {
		return price
	}
	logBase := math.Log(1 + r)
	n := math.Round(math.Log(price)/logBase - math.Log(seed)/logBase)
	return seed * math.Pow(1+r, n)
}

// ActionType is the trade direction an algorithm requests.
type ActionType int

const (
	Buy ActionType = iota
	Sell
)

// Transaction is the single trade (if any) an algorithm requests for a
// given day's evaluation.
type Transaction struct {
	Action ActionType
	Qty    float64
	Notes  string
}

// Algorithm is the per-asset stateful rule engine the daily driver (C6)
// steps forward one day at a time.
type Algorithm interface {
	// OnNewHoldings arms the algorithm's initial state at the opening
	// purchase's holdings/price.
	OnNewHoldings(holdings, price float64)
	// OnDay evaluates one trading day and optionally returns a trade.
	// holdings/cash reflect state BEFORE any trade from this call; the
	// caller applies the returned Transaction to both.
	OnDay(bar domain.Bar, holdings, cash float64, history []domain.Bar) *Transaction
	// OnEndHolding finalizes the algorithm's run; no further calls follow.
	OnEndHolding()
}

// BuyAndHold never trades after the initial purchase.
type BuyAndHold struct{}

func (BuyAndHold) OnNewHoldings(float64, float64) {}
func (BuyAndHold) OnDay(domain.Bar, float64, float64, []domain.Bar) *Transaction {
	return nil
}
func (BuyAndHold) OnEndHolding() {}
