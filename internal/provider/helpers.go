package provider

import (
	"fmt"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
)

// dailyRange returns every calendar day from start to end inclusive.
// Callers are expected to have already validated start <= end.
func dailyRange(start, end time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: start %s after end %s", domain.ErrInvalidDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}
