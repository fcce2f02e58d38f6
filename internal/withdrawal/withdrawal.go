// Package withdrawal implements the stateless inflation-indexed
// withdrawal schedule helper (spec §4.9): cadence to periods-per-year,
// CPI-scaled amount, and forward-fill on missing CPI days.
package withdrawal

import "time"

// Schedule computes one scheduled withdrawal event.
type Schedule struct {
	AnnualRate  float64 // percent/year as a decimal, e.g. 0.04
	CadenceDays int
	CPI         map[string]float64 // date (2006-01-02) -> CPI index; nil disables inflation scaling
}

// PeriodsPerYear is 365.25 / CadenceDays.
func (s Schedule) PeriodsPerYear() float64 {
	if s.CadenceDays <= 0 {
		return 0
	}
	return 365.25 / float64(s.CadenceDays)
}

// Amount computes the withdrawal amount for one period given the
// baseline value the rate is applied to (typically the portfolio's
// starting value) and the current date, CPI-scaled relative to
// startDate if a CPI series is present. Missing CPI days are
// forward-filled from the most recent known value at or before the
// queried date.
func (s Schedule) Amount(baselineValue float64, startDate, currentDate time.Time) float64 {
	periods := s.PeriodsPerYear()
	if periods == 0 {
		return 0
	}
	amount := baselineValue * s.AnnualRate / periods

	if len(s.CPI) == 0 {
		return amount
	}

	startCPI := forwardFill(s.CPI, startDate)
	currentCPI := forwardFill(s.CPI, currentDate)
	if startCPI == 0 {
		return amount
	}
	return amount * currentCPI / startCPI
}

// Due reports whether a withdrawal is scheduled on currentDate, given
// the date of the last withdrawal (zero value means none yet).
func (s Schedule) Due(lastWithdrawal, currentDate time.Time) bool {
	if s.AnnualRate <= 0 || s.CadenceDays <= 0 {
		return false
	}
	return currentDate.Sub(lastWithdrawal) >= time.Duration(s.CadenceDays)*24*time.Hour
}

// forwardFill returns the CPI value for date, or the most recent value
// on or before date if the exact day is missing. Returns 0 if no value
// at or before date exists.
func forwardFill(cpi map[string]float64, date time.Time) float64 {
	if v, ok := cpi[date.Format("2006-01-02")]; ok {
		return v
	}
	var best float64
	var bestDate time.Time
	for k, v := range cpi {
		d, err := time.Parse("2006-01-02", k)
		if err != nil || d.After(date) {
			continue
		}
		if d.After(bestDate) {
			bestDate = d
			best = v
		}
	}
	return best
}
