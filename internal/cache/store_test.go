package cache

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "sdbacktest-cache-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return NewStore(dir, time.Second, zerolog.Nop())
}

func bar(date string, c float64) domain.Bar {
	d, _ := time.Parse(dateLayout, date)
	return domain.Bar{Date: d, Open: c, High: c, Low: c, Close: c}
}

func TestStore_GetPrices_MissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	bars, err := s.GetPrices("AAPL")
	require.NoError(t, err)
	assert.Nil(t, bars)
}

func TestStore_MergePrices_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MergePrices("AAPL", []domain.Bar{
		bar("2020-01-02", 100),
		bar("2020-01-03", 101),
	}))

	got, err := s.GetPrices("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[0].Close)
	assert.Equal(t, 101.0, got[1].Close)
}

func TestStore_MergePrices_UnionsAndSortsAscendingWithLastWriteWins(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MergePrices("AAPL", []domain.Bar{
		bar("2020-01-03", 101),
		bar("2020-01-02", 100),
	}))
	require.NoError(t, s.MergePrices("AAPL", []domain.Bar{
		bar("2020-01-03", 999), // collision: should win over first write
		bar("2020-01-04", 102),
	}))

	got, err := s.GetPrices("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2020-01-02", got[0].Date.Format(dateLayout))
	assert.Equal(t, "2020-01-03", got[1].Date.Format(dateLayout))
	assert.Equal(t, 999.0, got[1].Close)
	assert.Equal(t, "2020-01-04", got[2].Date.Format(dateLayout))
}

func TestStore_MergePrices_BinaryAndCSVTwinsAgree(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.MergePrices("MSFT", []domain.Bar{bar("2021-05-01", 250)}))

	binPath, csvPath, _ := s.paths("MSFT", "prices")

	fromBin, err := readBarsBinary(binPath)
	require.NoError(t, err)
	fromCSV, err := readBarsCSV(csvPath)
	require.NoError(t, err)

	require.Len(t, fromBin, 1)
	require.Len(t, fromCSV, 1)
	assert.Equal(t, fromBin[0].Date, fromCSV[0].Date)
	assert.Equal(t, fromBin[0].Close, fromCSV[0].Close)
}

func TestStore_MergeDividends_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	d, _ := time.Parse(dateLayout, "2022-03-15")

	require.NoError(t, s.MergeDividends("AAPL", []domain.DividendEvent{
		{ExDate: d, CashPerShare: 0.22},
	}))

	got, err := s.GetDividends("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.22, got[0].CashPerShare)
}

func TestSanitize_StripsUnsafeCharacters(t *testing.T) {
	assert.Equal(t, "BRK_B", sanitize("brk.b"))
	assert.Equal(t, "X-USD", sanitize("x-usd"))
}
