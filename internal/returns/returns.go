// Package returns computes return-adjustment metrics over a completed
// backtest summary: real (CPI-deflated) return, alpha vs a benchmark,
// and realized volatility/Sharpe ratio (spec §4.8).
package returns

import (
	"math"

	"github.com/sdbacktest/engine/internal/backtest"
	"gonum.org/v1/gonum/stat"
)

// Adjusted holds the return-adjustment outputs. Fields are zero-valued
// (with Err set) when the supporting series was missing or too short to
// compute, per spec §4.8's "non-fatal error string" requirement.
type Adjusted struct {
	NominalReturn        float64
	NominalDollars       float64
	RealReturn           float64
	RealReturnErr        string
	PurchasingPowerLost  float64
	Alpha                float64
	AlphaDollars         float64
	AlphaErr             string
	RealizedVolatility   float64
	SharpeRatio          float64
	VolatilityErr        string
}

// Compute derives Adjusted from summary plus optional CPI (date ->
// index) and benchmark (date -> close) series spanning the same window.
func Compute(summary backtest.Summary, cpi map[string]float64, benchmark map[string]float64, riskFreeAnnual float64) Adjusted {
	nominalDollars := summary.TotalValue - summary.StartValue

	adj := Adjusted{
		NominalReturn:  summary.TotalReturn,
		NominalDollars: nominalDollars,
	}

	adj.RealReturn, adj.RealReturnErr = realReturn(summary, cpi)
	if adj.RealReturnErr == "" {
		realDollars := adj.RealReturn * summary.StartValue
		adj.PurchasingPowerLost = adj.NominalDollars - realDollars
	}

	adj.Alpha, adj.AlphaDollars, adj.AlphaErr = alpha(summary, benchmark)

	adj.RealizedVolatility, adj.SharpeRatio, adj.VolatilityErr = volatility(summary, riskFreeAnnual)

	return adj
}

func realReturn(summary backtest.Summary, cpi map[string]float64) (float64, string) {
	if len(cpi) == 0 {
		return 0, "no CPI series supplied"
	}
	startCPI, okStart := cpi[summary.StartDate.Format("2006-01-02")]
	endCPI, okEnd := cpi[summary.EndDate.Format("2006-01-02")]
	if !okStart || !okEnd || startCPI == 0 {
		return 0, "CPI series does not cover the backtest window"
	}
	cpiRatio := endCPI / startCPI
	if summary.StartValue == 0 {
		return 0, "zero starting value"
	}
	deflatedEnd := summary.TotalValue / cpiRatio
	return (deflatedEnd - summary.StartValue) / summary.StartValue, ""
}

func alpha(summary backtest.Summary, benchmark map[string]float64) (float64, float64, string) {
	if len(benchmark) < 2 {
		return 0, 0, "no benchmark series supplied"
	}
	startPx, okStart := benchmark[summary.StartDate.Format("2006-01-02")]
	endPx, okEnd := benchmark[summary.EndDate.Format("2006-01-02")]
	if !okStart || !okEnd || startPx == 0 {
		return 0, 0, "benchmark series does not cover the backtest window"
	}
	benchmarkReturn := (endPx - startPx) / startPx
	alphaPct := summary.TotalReturn - benchmarkReturn
	return alphaPct, alphaPct * summary.StartValue, ""
}

// volatility computes annualized stdev of daily log returns over the
// snapshot series, and the Sharpe ratio against riskFreeAnnual. This is
// a supplemented feature (not in the base spec) surfaced for reporting.
func volatility(summary backtest.Summary, riskFreeAnnual float64) (float64, float64, string) {
	if len(summary.Snapshots) < 3 {
		return 0, 0, "too few snapshots to estimate volatility"
	}

	logReturns := make([]float64, 0, len(summary.Snapshots)-1)
	for i := 1; i < len(summary.Snapshots); i++ {
		prev := summary.Snapshots[i-1].TotalValue
		cur := summary.Snapshots[i].TotalValue
		if prev <= 0 || cur <= 0 {
			continue
		}
		logReturns = append(logReturns, math.Log(cur/prev))
	}
	if len(logReturns) < 2 {
		return 0, 0, "insufficient valid daily returns"
	}

	meanDaily := stat.Mean(logReturns, nil)
	stdDaily := stat.StdDev(logReturns, nil)
	annualizedVol := stdDaily * math.Sqrt(252)
	annualizedMean := meanDaily * 252

	if annualizedVol == 0 {
		return annualizedVol, 0, ""
	}
	sharpe := (annualizedMean - riskFreeAnnual) / annualizedVol
	return annualizedVol, sharpe, ""
}
