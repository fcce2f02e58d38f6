// Package domain provides the core value types and sentinel errors shared
// across the backtesting engine: price bars, dividend events, and the
// contract-violation errors surfaced to callers.
package domain

import (
	"errors"
	"time"
)

// Bar is a single trading day's OHLC quote for one ticker.
//
// Invariant: Low <= Open, Close <= High, and all four fields are positive.
// Cash-like tickers (e.g. the cash provider) report all four equal to 1.0.
type Bar struct {
	Date  time.Time `json:"date" msgpack:"date"`
	Open  float64   `json:"open" msgpack:"open"`
	High  float64   `json:"high" msgpack:"high"`
	Low   float64   `json:"low" msgpack:"low"`
	Close float64   `json:"close" msgpack:"close"`
}

// Valid reports whether the bar satisfies the OHLC ordering invariant.
func (b Bar) Valid() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 &&
		b.Low <= b.Open && b.Low <= b.Close && b.Open <= b.High && b.Close <= b.High
}

// DividendEvent is a single cash dividend paid on an ex-date.
type DividendEvent struct {
	ExDate       time.Time `json:"ex_date" msgpack:"ex_date"`
	CashPerShare float64   `json:"cash_per_share" msgpack:"cash_per_share"`
}

// Sentinel errors surfaced to callers (spec §6). Wrap with fmt.Errorf and
// %w so callers can still match with errors.Is.
var (
	ErrNoProviderRegistered = errors.New("no provider registered for ticker")
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrInsufficientShares   = errors.New("insufficient shares")
	ErrPriceMissing         = errors.New("price missing for ticker")
	ErrLockTimeout          = errors.New("timed out acquiring cache lock")
	ErrUnknownAlgorithm     = errors.New("unknown algorithm identifier")
	ErrAllocationSumInvalid = errors.New("allocation weights do not sum to 1")
)
