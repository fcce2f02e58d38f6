package ledger

import (
	"fmt"
	"sort"
)

// LotSelector orders the open BUY lots in txns for selling. It returns
// indices into txns, not copies, since AddSell mutates lots in place.
type LotSelector interface {
	SelectLots(txns []Transaction) []int
	Name() string
}

// fifoSelector sells the oldest open lots first.
type fifoSelector struct{}

func (fifoSelector) Name() string { return "FIFO" }

func (fifoSelector) SelectLots(txns []Transaction) []int {
	var order []int
	for i, t := range txns {
		if t.Type == Buy && t.IsOpen() {
			order = append(order, i)
		}
	}
	return order
}

// lifoSelector sells the newest open lots first.
type lifoSelector struct{}

func (lifoSelector) Name() string { return "LIFO" }

func (lifoSelector) SelectLots(txns []Transaction) []int {
	var order []int
	for i := len(txns) - 1; i >= 0; i-- {
		if txns[i].Type == Buy && txns[i].IsOpen() {
			order = append(order, i)
		}
	}
	return order
}

// highestCostSelector sells the most expensive lots first, minimizing
// realized gains.
type highestCostSelector struct{}

func (highestCostSelector) Name() string { return "HIGHEST_COST" }

func (highestCostSelector) SelectLots(txns []Transaction) []int {
	return sortOpenBuys(txns, func(a, b float64) bool { return a > b })
}

// lowestCostSelector sells the cheapest lots first, maximizing realized
// gains.
type lowestCostSelector struct{}

func (lowestCostSelector) Name() string { return "LOWEST_COST" }

func (lowestCostSelector) SelectLots(txns []Transaction) []int {
	return sortOpenBuys(txns, func(a, b float64) bool { return a < b })
}

// sortOpenBuys returns indices of open BUY lots sorted by purchase price
// per less(a, b); ties keep original (stable) order.
func sortOpenBuys(txns []Transaction, less func(a, b float64) bool) []int {
	var order []int
	for i, t := range txns {
		if t.Type == Buy && t.IsOpen() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(txns[order[i]].PurchasePrice, txns[order[j]].PurchasePrice)
	})
	return order
}

// Strategies by identifier (spec §4.3).
const (
	FIFO        = "FIFO"
	LIFO        = "LIFO"
	HighestCost = "HIGHEST_COST"
	LowestCost  = "LOWEST_COST"
)

// NewSelector resolves a strategy name to its LotSelector.
func NewSelector(strategy string) (LotSelector, error) {
	switch strategy {
	case FIFO:
		return fifoSelector{}, nil
	case LIFO:
		return lifoSelector{}, nil
	case HighestCost:
		return highestCostSelector{}, nil
	case LowestCost:
		return lowestCostSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown lot selection strategy: %s", strategy)
	}
}
