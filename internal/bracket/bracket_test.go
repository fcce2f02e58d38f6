package bracket

import (
	"testing"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSizingOrders_SymmetryCheck(t *testing.T) {
	o := SizingOrders(1000, 100, 0.0905, 0.5)

	assert.InDelta(t, 91.697, o.NextBuyPrice, 0.01)
	assert.Equal(t, 45.0, o.NextBuyQty)
	assert.InDelta(t, 109.05, o.NextSellPrice, 0.01)
	assert.Equal(t, 41.0, o.NextSellQty)
}

func TestSnapToLadder_SameBracketForNearbyPrices(t *testing.T) {
	r := 0.0905
	seed := 100.0

	a := SnapToLadder(120.50, seed, r)
	b := SnapToLadder(121.00, seed, r)
	c := SnapToLadder(119.80, seed, r)

	assert.InDelta(t, a, b, 0.001)
	assert.InDelta(t, a, c, 0.001)
}

func TestSnapToLadder_DisabledWithoutSeed(t *testing.T) {
	assert.Equal(t, 123.45, SnapToLadder(123.45, 0, 0.05))
}

func bar(date string, o, h, l, c float64) domain.Bar {
	d, _ := time.Parse("2006-01-02", date)
	return domain.Bar{Date: d, Open: o, High: h, Low: l, Close: c}
}

func TestFull_BuysOnGapDown(t *testing.T) {
	f := NewFull(0.10, 0.5, 0)
	f.OnNewHoldings(1000, 100)

	tx := f.OnDay(bar("2024-01-02", 88, 92, 85, 90), 1000, 0, nil)
	if assert.NotNil(t, tx) {
		assert.Equal(t, Buy, tx.Action)
	}
}

func TestFull_SellsOnGapUp(t *testing.T) {
	f := NewFull(0.10, 0.5, 0)
	f.OnNewHoldings(1000, 100)

	tx := f.OnDay(bar("2024-01-02", 112, 115, 108, 110), 1000, 0, nil)
	if assert.NotNil(t, tx) {
		assert.Equal(t, Sell, tx.Action)
	}
}

func TestFull_NoTradeWithinBand(t *testing.T) {
	f := NewFull(0.10, 0.5, 0)
	f.OnNewHoldings(1000, 100)

	tx := f.OnDay(bar("2024-01-02", 100, 102, 98, 101), 1000, 0, nil)
	assert.Nil(t, tx)
}

func TestFull_InvalidBarSkippedWithoutError(t *testing.T) {
	f := NewFull(0.10, 0.5, 0)
	f.OnNewHoldings(1000, 100)

	tx := f.OnDay(domain.Bar{}, 1000, 0, nil)
	assert.Nil(t, tx)
}

func TestATHOnly_SellsOnlyAtNewHigh(t *testing.T) {
	a := NewATHOnly(0.10, 0.5)
	a.OnNewHoldings(1000, 100)

	// not a new high: no sell regardless of price level
	tx := a.OnDay(bar("2024-01-02", 95, 99, 90, 95), 1000, 0, nil)
	assert.Nil(t, tx)

	tx = a.OnDay(bar("2024-01-03", 112, 115, 108, 110), 1000, 0, nil)
	if assert.NotNil(t, tx) {
		assert.Equal(t, Sell, tx.Action)
	}
}

func TestBuyAndHold_NeverTrades(t *testing.T) {
	var b BuyAndHold
	b.OnNewHoldings(1000, 100)
	tx := b.OnDay(bar("2024-01-02", 1000, 2000, 50, 1500), 1000, 0, nil)
	assert.Nil(t, tx)
}
