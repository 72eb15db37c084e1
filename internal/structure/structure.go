// Package structure analyzes raw candle windows for price-action context:
// swing-point market structure, volume confirmation, order blocks,
// Fibonacci pullback depth, and support/resistance levels.
//
// The analyzers are independent of the indicator library — they read the
// candles directly — and each returns a small scored summary consumed by
// the signal engine.
package structure

import (
	"fmt"

	"signal-systemv1/internal/model"
)

const (
	structureLookback = 20
	fractalWing       = 2 // candles on each side of a 5-candle fractal
)

// swing is one detected swing point.
type swing struct {
	index  int
	price  float64
	isHigh bool
}

// AnalyzeMarketStructure classifies the swing high/low pattern of the
// trailing 20 candles. A candle is a swing high/low when it strictly
// exceeds the two candles on each side. The last two swing highs and last
// two swing lows decide the pattern: higher-high plus higher-low is an
// uptrend (+2), lower-high plus lower-low a downtrend (-2), anything mixed
// or with fewer than four swing points is sideways (0).
func AnalyzeMarketStructure(candles []model.Candle) model.MarketStructure {
	window := model.Tail(candles, structureLookback)

	var swings []swing
	for i := fractalWing; i < len(window)-fractalWing; i++ {
		if isFractalHigh(window, i) {
			swings = append(swings, swing{index: i, price: window[i].High, isHigh: true})
		}
		if isFractalLow(window, i) {
			swings = append(swings, swing{index: i, price: window[i].Low, isHigh: false})
		}
	}

	if len(swings) < 4 {
		return model.MarketStructure{
			Trend:       model.StructureSideways,
			Description: "not enough swing points to classify structure",
		}
	}

	var highs, lows []swing
	for _, s := range swings {
		if s.isHigh {
			highs = append(highs, s)
		} else {
			lows = append(lows, s)
		}
	}
	if len(highs) < 2 || len(lows) < 2 {
		return model.MarketStructure{
			Trend:       model.StructureSideways,
			Description: "swing points lack a high/low pair to compare",
		}
	}

	hh := highs[len(highs)-1].price > highs[len(highs)-2].price
	hl := lows[len(lows)-1].price > lows[len(lows)-2].price
	lh := highs[len(highs)-1].price < highs[len(highs)-2].price
	ll := lows[len(lows)-1].price < lows[len(lows)-2].price

	switch {
	case hh && hl:
		return model.MarketStructure{
			Trend:       model.StructureUptrend,
			Score:       2,
			Description: "higher high and higher low",
		}
	case lh && ll:
		return model.MarketStructure{
			Trend:       model.StructureDowntrend,
			Score:       -2,
			Description: "lower high and lower low",
		}
	default:
		return model.MarketStructure{
			Trend:       model.StructureSideways,
			Description: "mixed swing pattern",
		}
	}
}

func isFractalHigh(window []model.Candle, i int) bool {
	h := window[i].High
	for off := 1; off <= fractalWing; off++ {
		if h <= window[i-off].High || h <= window[i+off].High {
			return false
		}
	}
	return true
}

func isFractalLow(window []model.Candle, i int) bool {
	l := window[i].Low
	for off := 1; off <= fractalWing; off++ {
		if l >= window[i-off].Low || l >= window[i+off].Low {
			return false
		}
	}
	return true
}

// AnalyzeVolume scores the latest volume against the trailing-20 average:
// spikes of 2x or more score +2, 1.5x scores +1, a dry-up below 0.5x
// scores -1.
func AnalyzeVolume(candles []model.Candle) model.VolumeConfirmation {
	window := model.Tail(candles, structureLookback)
	if len(window) == 0 {
		return model.VolumeConfirmation{Description: "no candles"}
	}

	sum := 0.0
	for i := range window {
		sum += window[i].Volume
	}
	avg := sum / float64(len(window))
	if avg == 0 {
		return model.VolumeConfirmation{Description: "no volume in window"}
	}

	ratio := window[len(window)-1].Volume / avg
	vc := model.VolumeConfirmation{Ratio: ratio}
	switch {
	case ratio >= 2.0:
		vc.Score = 2
		vc.Description = fmt.Sprintf("strong volume spike (%.1fx average)", ratio)
	case ratio >= 1.5:
		vc.Score = 1
		vc.Description = fmt.Sprintf("elevated volume (%.1fx average)", ratio)
	case ratio < 0.5:
		vc.Score = -1
		vc.Description = fmt.Sprintf("volume dry-up (%.1fx average)", ratio)
	default:
		vc.Description = fmt.Sprintf("normal volume (%.1fx average)", ratio)
	}
	return vc
}
