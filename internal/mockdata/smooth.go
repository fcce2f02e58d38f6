// Package mockdata post-processes the mock price provider's generated
// SINE and WALK closes with an SMA smoothing pass, so a single-bar
// noise spike in the underlying generator never produces an
// unrepresentative bracket trade in a backtest run purely against
// synthetic data.
package mockdata

import (
	"math"

	"github.com/markcheno/go-talib"
)

// defaultWindow matches the pack's short-period smoothing convention
// (trader's EMA/Bollinger helpers default to short warm-up windows);
// 3 bars is enough to absorb a single-bar spike without flattening the
// underlying pattern.
const defaultWindow = 3

// Smooth runs an SMA pass over closes and returns a same-length series
// with single-bar spikes removed. talib.Sma leaves the first
// window-1 values unset (zero, insufficient warm-up); those positions
// keep their original close instead.
func Smooth(closes []float64) []float64 {
	return SmoothWindow(closes, defaultWindow)
}

// SmoothWindow is Smooth with an explicit window size.
func SmoothWindow(closes []float64, window int) []float64 {
	if window < 2 || len(closes) < window {
		return closes
	}

	sma := talib.Sma(closes, window)
	out := make([]float64, len(closes))
	for i, v := range closes {
		if i >= window-1 && i < len(sma) && !math.IsNaN(sma[i]) {
			out[i] = sma[i]
			continue
		}
		out[i] = v
	}
	return out
}
