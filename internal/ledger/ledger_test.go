package ledger

import (
	"testing"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestHolding_AddBuy_IncreasesCurrentShares(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(10, d("2024-01-01"), 100, "")
	h.AddBuy(5, d("2024-02-01"), 110, "")

	assert.Equal(t, 15.0, h.CurrentShares())
	assert.Equal(t, 10*100+5*110.0, h.CostBasis())
}

func TestHolding_AddSell_InsufficientShares(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(5, d("2024-01-01"), 100, "")

	sel, _ := NewSelector(FIFO)
	_, err := h.AddSell(10, d("2024-02-01"), 120, "", sel)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestHolding_AddSell_FIFO_ClosesOldestFirst(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(10, d("2024-01-01"), 100, "")
	h.AddBuy(10, d("2024-02-01"), 120, "")

	sel, _ := NewSelector(FIFO)
	sells, err := h.AddSell(10, d("2024-03-01"), 150, "", sel)
	require.NoError(t, err)
	require.Len(t, sells, 1)

	assert.Equal(t, 10.0, h.CurrentShares())
	assert.Equal(t, 10*120.0, h.CostBasis()) // older lot consumed, newer lot remains
}

func TestHolding_AddSell_LIFO_ClosesNewestFirst(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(10, d("2024-01-01"), 100, "")
	h.AddBuy(10, d("2024-02-01"), 120, "")

	sel, _ := NewSelector(LIFO)
	_, err := h.AddSell(10, d("2024-03-01"), 150, "", sel)
	require.NoError(t, err)

	assert.Equal(t, 10.0, h.CurrentShares())
	assert.Equal(t, 10*100.0, h.CostBasis()) // newer lot consumed, older lot remains
}

func TestHolding_AddSell_HighestCostFirst(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(10, d("2024-01-01"), 100, "")
	h.AddBuy(10, d("2024-02-01"), 150, "")

	sel, _ := NewSelector(HighestCost)
	_, err := h.AddSell(10, d("2024-03-01"), 200, "", sel)
	require.NoError(t, err)

	assert.Equal(t, 10*100.0, h.CostBasis()) // the $150 lot sold first
}

func TestHolding_AddSell_LowestCostFirst(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(10, d("2024-01-01"), 100, "")
	h.AddBuy(10, d("2024-02-01"), 150, "")

	sel, _ := NewSelector(LowestCost)
	_, err := h.AddSell(10, d("2024-03-01"), 200, "", sel)
	require.NoError(t, err)

	assert.Equal(t, 10*150.0, h.CostBasis()) // the $100 lot sold first
}

func TestHolding_AddSell_SplitsPartialLot(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(10, d("2024-01-01"), 100, "")

	sel, _ := NewSelector(FIFO)
	sells, err := h.AddSell(4, d("2024-02-01"), 150, "", sel)
	require.NoError(t, err)
	require.Len(t, sells, 1)
	assert.Equal(t, 4.0, sells[0].Shares)

	assert.Equal(t, 6.0, h.CurrentShares())
	assert.Equal(t, 6*100.0, h.CostBasis())

	// splitting leaves exactly one open sibling lot holding the unsold remainder
	var openLots int
	for _, txn := range h.Transactions {
		if txn.Type == Buy && txn.IsOpen() {
			openLots++
		}
	}
	assert.Equal(t, 1, openLots)
}

func TestHolding_AddSell_MultiLotSplitAcrossSeveralBuys(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(5, d("2024-01-01"), 100, "")
	h.AddBuy(5, d("2024-01-15"), 110, "")
	h.AddBuy(5, d("2024-02-01"), 120, "")

	sel, _ := NewSelector(FIFO)
	sells, err := h.AddSell(8, d("2024-03-01"), 150, "", sel)
	require.NoError(t, err)
	require.Len(t, sells, 2)

	assert.Equal(t, 7.0, h.CurrentShares())
	assert.Equal(t, 2*110.0+5*120.0, h.CostBasis())
}

func TestHolding_RealizedGainLoss(t *testing.T) {
	h := NewHolding("AAPL")
	h.AddBuy(10, d("2024-01-01"), 100, "")

	sel, _ := NewSelector(FIFO)
	_, err := h.AddSell(10, d("2024-02-01"), 150, "", sel)
	require.NoError(t, err)

	assert.Equal(t, 500.0, h.RealizedGainLoss())
}

func TestNewSelector_UnknownStrategy(t *testing.T) {
	_, err := NewSelector("BOGUS")
	assert.Error(t, err)
}
