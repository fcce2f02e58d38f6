// Package series provides simple date-indexed lookups and a CSV loader
// for CPI and benchmark price series. The CLI loads these files here and
// hands them to the withdrawal engine and the return-adjustment
// calculator as plain date->value maps (SPEC_FULL C10, supplemented
// from the original model's research layer).
package series

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// DateIndexed is a date -> value series with forward-fill lookups and
// CSV loading, shared by CPI indices and benchmark close prices.
type DateIndexed struct {
	values map[string]float64
	dates  []time.Time // sorted ascending, kept for forward-fill
}

// NewDateIndexed builds a DateIndexed from a date->value map.
func NewDateIndexed(values map[string]float64) *DateIndexed {
	d := &DateIndexed{values: make(map[string]float64, len(values))}
	for k, v := range values {
		t, err := time.Parse(dateLayout, k)
		if err != nil {
			continue
		}
		d.values[k] = v
		d.dates = append(d.dates, t)
	}
	sort.Slice(d.dates, func(i, j int) bool { return d.dates[i].Before(d.dates[j]) })
	return d
}

// LoadCSV reads a two-column "Date,Value" CSV (header required) into a
// DateIndexed series.
func LoadCSV(r io.Reader) (*DateIndexed, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing series CSV: %w", err)
	}
	if len(records) == 0 {
		return NewDateIndexed(nil), nil
	}

	values := make(map[string]float64, len(records)-1)
	for _, row := range records[1:] {
		if len(row) < 2 {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(row[1], "%f", &v); err != nil {
			continue
		}
		values[row[0]] = v
	}
	return NewDateIndexed(values), nil
}

// At returns the exact value for date and whether it was present.
func (d *DateIndexed) At(date time.Time) (float64, bool) {
	v, ok := d.values[date.Format(dateLayout)]
	return v, ok
}

// ForwardFill returns the value at date, or the most recent value on or
// before date. Returns (0, false) if no such value exists.
func (d *DateIndexed) ForwardFill(date time.Time) (float64, bool) {
	if v, ok := d.At(date); ok {
		return v, true
	}
	// dates is sorted ascending; find the last one <= date.
	idx := sort.Search(len(d.dates), func(i int) bool { return d.dates[i].After(date) })
	if idx == 0 {
		return 0, false
	}
	v, ok := d.At(d.dates[idx-1])
	return v, ok
}

// AsMap returns the underlying date->value map, for callers (e.g.
// returns.Compute) that want direct map access.
func (d *DateIndexed) AsMap() map[string]float64 {
	return d.values
}
