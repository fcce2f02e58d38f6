// Package algofactory parses strategy identifier strings into bracket
// algorithm instances (spec §4.5 / §5 identifier grammar).
package algofactory

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sdbacktest/engine/internal/bracket"
	"github.com/sdbacktest/engine/internal/domain"
)

var (
	sdPattern      = regexp.MustCompile(`^sd-([0-9]+(?:\.[0-9]+)?),([0-9]+(?:\.[0-9]+)?)$`)
	sdATHPattern   = regexp.MustCompile(`^sd-ath-only-([0-9]+(?:\.[0-9]+)?),([0-9]+(?:\.[0-9]+)?)$`)
	sdNPattern     = regexp.MustCompile(`^sd([0-9]+)$`)
	validSDNValues = map[int]bool{4: true, 5: true, 6: true, 8: true, 10: true, 12: true, 16: true, 20: true, 24: true}
)

// Build parses identifier into a bracket.Algorithm, per the grammar:
//
//	buy-and-hold               -> bracket.BuyAndHold
//	sd-{r_pct},{s_pct}          -> bracket.Full, rebalance r_pct%, profit-sharing s_pct%
//	sd-ath-only-{r_pct},{s_pct} -> bracket.ATHOnly
//	sdN (N in {4,5,6,8,10,12,16,20,24}) -> bracket.Full with r = 2^(1/N)-1, s = 0.5
//
// seed is passed through to bracket.Full for ladder-snap normalization;
// pass 0 to disable snapping.
func Build(identifier string, seed float64) (bracket.Algorithm, error) {
	id := strings.TrimSpace(identifier)

	if id == "buy-and-hold" {
		return bracket.BuyAndHold{}, nil
	}

	if m := sdATHPattern.FindStringSubmatch(id); m != nil {
		r, s, err := parsePct(m[1], m[2])
		if err != nil {
			return nil, err
		}
		return bracket.NewATHOnly(r, s), nil
	}

	if m := sdPattern.FindStringSubmatch(id); m != nil {
		r, s, err := parsePct(m[1], m[2])
		if err != nil {
			return nil, err
		}
		return bracket.NewFull(r, s, seed), nil
	}

	if m := sdNPattern.FindStringSubmatch(id); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || !validSDNValues[n] {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAlgorithm, id)
		}
		r := math.Pow(2, 1.0/float64(n)) - 1
		return bracket.NewFull(r, 0.5, seed), nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAlgorithm, id)
}

func parsePct(rPctStr, sPctStr string) (r, s float64, err error) {
	rPct, err := strconv.ParseFloat(rPctStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing rebalance percent %q: %w", rPctStr, err)
	}
	sPct, err := strconv.ParseFloat(sPctStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing profit-sharing percent %q: %w", sPctStr, err)
	}
	return rPct / 100, sPct / 100, nil
}
