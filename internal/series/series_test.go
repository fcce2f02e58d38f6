package series

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestLoadCSV_ParsesRows(t *testing.T) {
	csv := "Date,Value\n2024-01-01,100.0\n2024-02-01,101.5\n"
	s, err := LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	v, ok := s.At(d("2024-01-01"))
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestDateIndexed_ForwardFill(t *testing.T) {
	s := NewDateIndexed(map[string]float64{"2024-01-01": 100, "2024-03-01": 103})

	v, ok := s.ForwardFill(d("2024-02-15"))
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestDateIndexed_ForwardFill_NoEarlierValue(t *testing.T) {
	s := NewDateIndexed(map[string]float64{"2024-03-01": 103})
	_, ok := s.ForwardFill(d("2024-01-01"))
	assert.False(t, ok)
}
