package cache

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/sdbacktest/engine/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

const dateLayout = "2006-01-02"

// readBarsBinary decodes the msgpack twin. Returns (nil, nil) if the file
// does not exist.
func readBarsBinary(path string) ([]domain.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var bars []domain.Bar
	if err := msgpack.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return bars, nil
}

func writeBarsBinary(path string, bars []domain.Bar) error {
	data, err := msgpack.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// readBarsCSV decodes the textual twin ("Date,Open,High,Low,Close"). Returns
// (nil, nil) if the file does not exist.
func readBarsCSV(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	bars := make([]domain.Bar, 0, len(records)-1)
	for _, row := range records[1:] { // skip header
		if len(row) < 5 {
			continue
		}
		d, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("parsing date %q in %s: %w", row[0], path, err)
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closeP, _ := strconv.ParseFloat(row[4], 64)
		bars = append(bars, domain.Bar{Date: d, Open: open, High: high, Low: low, Close: closeP})
	}
	return bars, nil
}

func writeBarsCSV(path string, bars []domain.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Open", "High", "Low", "Close"}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Date.Format(dateLayout),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readDividendsBinary(path string) ([]domain.DividendEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var divs []domain.DividendEvent
	if err := msgpack.Unmarshal(data, &divs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return divs, nil
}

func writeDividendsBinary(path string, divs []domain.DividendEvent) error {
	data, err := msgpack.Marshal(divs)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readDividendsCSV(path string) ([]domain.DividendEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	divs := make([]domain.DividendEvent, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) < 2 {
			continue
		}
		d, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("parsing date %q in %s: %w", row[0], path, err)
		}
		cash, _ := strconv.ParseFloat(row[1], 64)
		divs = append(divs, domain.DividendEvent{ExDate: d, CashPerShare: cash})
	}
	return divs, nil
}

func writeDividendsCSV(path string, divs []domain.DividendEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Dividend"}); err != nil {
		return err
	}
	for _, d := range divs {
		row := []string{d.ExDate.Format(dateLayout), strconv.FormatFloat(d.CashPerShare, 'f', -1, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// mergeBars unions two bar sets by date, last-write-wins on collisions
// (bars from `incoming` win), and returns them sorted ascending with unique
// dates (spec §4.2 invariants a, b).
func mergeBars(existing, incoming []domain.Bar) []domain.Bar {
	byDate := make(map[string]domain.Bar, len(existing)+len(incoming))
	for _, b := range existing {
		byDate[b.Date.Format(dateLayout)] = b
	}
	for _, b := range incoming {
		byDate[b.Date.Format(dateLayout)] = b
	}

	merged := make([]domain.Bar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

func mergeDividends(existing, incoming []domain.DividendEvent) []domain.DividendEvent {
	byDate := make(map[string]domain.DividendEvent, len(existing)+len(incoming))
	for _, d := range existing {
		byDate[d.ExDate.Format(dateLayout)] = d
	}
	for _, d := range incoming {
		byDate[d.ExDate.Format(dateLayout)] = d
	}

	merged := make([]domain.DividendEvent, 0, len(byDate))
	for _, d := range byDate {
		merged = append(merged, d)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ExDate.Before(merged[j].ExDate) })
	return merged
}
