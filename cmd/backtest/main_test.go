package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateFlag_RequiresValue(t *testing.T) {
	_, err := parseDateFlag("", "start")
	assert.Error(t, err)
}

func TestParseDateFlag_RejectsBadFormat(t *testing.T) {
	_, err := parseDateFlag("01/02/2024", "start")
	assert.Error(t, err)
}

func TestParseDateFlag_ParsesISODate(t *testing.T) {
	got, err := parseDateFlag("2024-01-15", "start")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestParseAssets_ParsesTriples(t *testing.T) {
	assets, err := parseAssets("VOO:0.6:buy-and-hold, BND:0.4:sd8")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "VOO", assets[0].Ticker)
	assert.InDelta(t, 0.6, assets[0].Weight, 1e-9)
	assert.Equal(t, "BND", assets[1].Ticker)
	assert.NotNil(t, assets[1].AlgoFactory())
}

func TestParseAssets_RejectsMalformedEntry(t *testing.T) {
	_, err := parseAssets("VOO:0.6")
	assert.Error(t, err)
}

func TestParseAssets_FallsBackToBuyAndHoldOnUnknownAlgo(t *testing.T) {
	assets, err := parseAssets("VOO:1.0:not-a-real-algo")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.NotNil(t, assets[0].AlgoFactory())
}
