// Package ledger implements the per-lot transaction ledger: an
// append-only record of BUY/SELL transactions per ticker, with
// pluggable lot-selection strategies for matching sells against open
// lots (spec §4.3).
package ledger

import (
	"fmt"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
)

// TxnType distinguishes a BUY from a SELL transaction.
type TxnType int

const (
	Buy TxnType = iota
	Sell
)

func (t TxnType) String() string {
	if t == Buy {
		return "BUY"
	}
	return "SELL"
}

// Transaction is a single lot event. BUY transactions start open
// (SaleDate zero); SELL transactions are always already closed and
// record a synthetic BUY's closing counterpart (Shares sold, at
// SalePrice).
type Transaction struct {
	Type          TxnType
	Shares        float64
	PurchaseDate  time.Time
	PurchasePrice float64
	SaleDate      time.Time
	SalePrice     float64
	Notes         string
}

// IsOpen reports whether this is a still-held BUY lot.
func (t Transaction) IsOpen() bool {
	return t.SaleDate.IsZero()
}

// RealizedGainLoss returns the P/L of a closed lot, or 0 for an open one.
func (t Transaction) RealizedGainLoss() float64 {
	if t.IsOpen() {
		return 0
	}
	return t.Shares*t.SalePrice - t.Shares*t.PurchasePrice
}

// Holding tracks every transaction for a single ticker. Current state
// (shares held, cost basis, market value) is always derived from the
// transaction log rather than stored redundantly.
type Holding struct {
	Ticker       string
	Transactions []Transaction
}

// NewHolding creates an empty holding for ticker.
func NewHolding(ticker string) *Holding {
	return &Holding{Ticker: ticker}
}

// AddBuy appends a new open BUY lot.
func (h *Holding) AddBuy(shares float64, purchaseDate time.Time, price float64, notes string) Transaction {
	txn := Transaction{
		Type:          Buy,
		Shares:        shares,
		PurchaseDate:  purchaseDate,
		PurchasePrice: price,
		Notes:         notes,
	}
	h.Transactions = append(h.Transactions, txn)
	return txn
}

// AddSell closes open BUY lots, selected via selector, until shares have
// been accounted for, splitting the final lot if it is only partially
// consumed. It returns the SELL transactions recorded (one per lot
// touched) and fails with domain.ErrInsufficientShares if shares exceeds
// CurrentShares.
func (h *Holding) AddSell(shares float64, saleDate time.Time, price float64, notes string, selector LotSelector) ([]Transaction, error) {
	held := h.CurrentShares()
	if shares > held {
		return nil, fmt.Errorf("%w: ticker %s wants %.4f, has %.4f", domain.ErrInsufficientShares, h.Ticker, shares, held)
	}

	order := selector.SelectLots(h.Transactions)
	remaining := shares
	var sells []Transaction

	for _, idx := range order {
		if remaining <= 0 {
			break
		}
		lot := &h.Transactions[idx]
		if !lot.IsOpen() {
			continue
		}

		fromLot := remaining
		if fromLot > lot.Shares {
			fromLot = lot.Shares
		}

		if fromLot < lot.Shares {
			unsold := Transaction{
				Type:          Buy,
				Shares:        lot.Shares - fromLot,
				PurchaseDate:  lot.PurchaseDate,
				PurchasePrice: lot.PurchasePrice,
				Notes:         splitNotes(lot.Notes),
			}
			lot.Shares = fromLot
			h.insertAfter(idx, unsold)
			order = reindexAfterInsert(order, idx)
			// insertAfter may have reallocated the backing array: re-resolve
			// the pointer instead of reusing the one taken before the insert.
			lot = &h.Transactions[idx]
		}

		lot.SaleDate = saleDate
		lot.SalePrice = price

		sellNote := notes
		if sellNote == "" {
			sellNote = fmt.Sprintf("sold lot from %s", lot.PurchaseDate.Format("2006-01-02"))
		}
		sells = append(sells, Transaction{
			Type:          Sell,
			Shares:        fromLot,
			PurchaseDate:  saleDate,
			PurchasePrice: price,
			SaleDate:      saleDate,
			SalePrice:     price,
			Notes:         sellNote,
		})

		remaining -= fromLot
	}

	h.Transactions = append(h.Transactions, sells...)
	return sells, nil
}

func splitNotes(original string) string {
	if original == "" {
		return "split lot"
	}
	return "split from " + original
}

// insertAfter inserts txn into h.Transactions immediately after index i.
func (h *Holding) insertAfter(i int, txn Transaction) {
	h.Transactions = append(h.Transactions, Transaction{})
	copy(h.Transactions[i+2:], h.Transactions[i+1:])
	h.Transactions[i+1] = txn
}

// reindexAfterInsert shifts every selection index greater than i up by
// one, since insertAfter shifted the backing slice.
func reindexAfterInsert(order []int, i int) []int {
	out := make([]int, len(order))
	for j, idx := range order {
		if idx > i {
			idx++
		}
		out[j] = idx
	}
	return out
}

// CurrentShares sums shares across all still-open BUY lots.
func (h *Holding) CurrentShares() float64 {
	var total float64
	for _, t := range h.Transactions {
		if t.Type == Buy && t.IsOpen() {
			total += t.Shares
		}
	}
	return total
}

// CostBasis sums cost basis across all still-open BUY lots.
func (h *Holding) CostBasis() float64 {
	var total float64
	for _, t := range h.Transactions {
		if t.Type == Buy && t.IsOpen() {
			total += t.Shares * t.PurchasePrice
		}
	}
	return total
}

// MarketValue returns CurrentShares() * currentPrice.
func (h *Holding) MarketValue(currentPrice float64) float64 {
	return h.CurrentShares() * currentPrice
}

// RealizedGainLoss sums realized P/L across every closed lot.
func (h *Holding) RealizedGainLoss() float64 {
	var total float64
	for _, t := range h.Transactions {
		if t.Type == Buy && !t.IsOpen() {
			total += t.RealizedGainLoss()
		}
	}
	return total
}

// UnrealizedGainLoss is MarketValue(currentPrice) - CostBasis().
func (h *Holding) UnrealizedGainLoss(currentPrice float64) float64 {
	return h.MarketValue(currentPrice) - h.CostBasis()
}
