package algofactory

import (
	"testing"

	"github.com/sdbacktest/engine/internal/bracket"
	"github.com/sdbacktest/engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_BuyAndHold(t *testing.T) {
	algo, err := Build("buy-and-hold", 0)
	require.NoError(t, err)
	assert.IsType(t, bracket.BuyAndHold{}, algo)
}

func TestBuild_FullLadder(t *testing.T) {
	algo, err := Build("sd-9.05,50", 0)
	require.NoError(t, err)
	full, ok := algo.(*bracket.Full)
	require.True(t, ok)
	assert.InDelta(t, 0.0905, full.R, 0.0001)
	assert.InDelta(t, 0.5, full.S, 0.0001)
}

func TestBuild_ATHOnly(t *testing.T) {
	algo, err := Build("sd-ath-only-9.05,50", 0)
	require.NoError(t, err)
	assert.IsType(t, &bracket.ATHOnly{}, algo)
}

func TestBuild_ConvenienceSDN(t *testing.T) {
	algo, err := Build("sd8", 0)
	require.NoError(t, err)
	full, ok := algo.(*bracket.Full)
	require.True(t, ok)
	assert.InDelta(t, 0.090508, full.R, 0.0001) // 2^(1/8)-1
	assert.InDelta(t, 0.5, full.S, 0.0001)
}

func TestBuild_UnknownIdentifier(t *testing.T) {
	_, err := Build("not-a-real-strategy", 0)
	assert.ErrorIs(t, err, domain.ErrUnknownAlgorithm)
}

func TestBuild_InvalidSDN(t *testing.T) {
	_, err := Build("sd7", 0)
	assert.ErrorIs(t, err, domain.ErrUnknownAlgorithm)
}
