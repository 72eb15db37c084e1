package structure

import (
	"sort"

	"signal-systemv1/internal/model"
)

const (
	levelsLookback   = 50
	extremesLookback = 20

	// Fallbacks when no fractal level qualifies on a side.
	defaultSupportPct    = 0.97
	defaultResistancePct = 1.03
)

// FindSupportResistance locates support/resistance levels over the
// trailing 50 candles using 3-candle fractal swings, with the trailing-20
// extremes added as coarse fallback levels. The nearest support must lie
// strictly below the current price and the nearest resistance strictly
// above; when no level qualifies, price·0.97 / price·1.03 stand in so the
// composer always has a working level.
func FindSupportResistance(candles []model.Candle, currentPrice float64) model.SupportResistance {
	window := model.Tail(candles, levelsLookback)

	var supports, resistances []float64
	for i := 1; i < len(window)-1; i++ {
		if window[i].Low < window[i-1].Low && window[i].Low < window[i+1].Low {
			supports = append(supports, window[i].Low)
		}
		if window[i].High > window[i-1].High && window[i].High > window[i+1].High {
			resistances = append(resistances, window[i].High)
		}
	}

	// Window extremes as coarse fallback levels.
	extremes := model.Tail(candles, extremesLookback)
	if len(extremes) > 0 {
		lo, hi := extremes[0].Low, extremes[0].High
		for i := range extremes {
			if extremes[i].Low < lo {
				lo = extremes[i].Low
			}
			if extremes[i].High > hi {
				hi = extremes[i].High
			}
		}
		supports = append(supports, lo)
		resistances = append(resistances, hi)
	}

	// Supports descending: the first level below price is the nearest.
	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	sort.Float64s(resistances)

	sr := model.SupportResistance{Supports: supports, Resistances: resistances}

	sr.NearestSupport = currentPrice * defaultSupportPct
	for _, s := range supports {
		if s < currentPrice {
			sr.NearestSupport = s
			break
		}
	}

	sr.NearestResistance = currentPrice * defaultResistancePct
	for _, r := range resistances {
		if r > currentPrice {
			sr.NearestResistance = r
			break
		}
	}
	return sr
}
