package structure

import (
	"fmt"

	"signal-systemv1/internal/model"
)

// Fibonacci retracement buckets, in percent of the window range.
const (
	fibShallow = 23.6
	fibIdeal   = 38.2
	fibDeep    = 61.8
)

// AnalyzePullback measures how far price has retraced from the more
// recent extreme of the trailing 20 candles and buckets the depth by
// Fibonacci ratios. A retracement from a recent high is a pullback within
// an up-move (bullish, positive scores); from a recent low, a bounce
// within a down-move (bearish, negative scores). The 38.2-61.8 band is the
// ideal entry zone (±2); beyond 61.8 the move is likely failing and the
// score flips sign (∓1).
func AnalyzePullback(candles []model.Candle) model.Pullback {
	window := model.Tail(candles, structureLookback)
	if len(window) == 0 {
		return model.Pullback{Direction: model.BiasNeutral, Description: "no candles"}
	}

	hiIdx, loIdx := 0, 0
	for i := range window {
		if window[i].High > window[hiIdx].High {
			hiIdx = i
		}
		if window[i].Low < window[loIdx].Low {
			loIdx = i
		}
	}
	hi, lo := window[hiIdx].High, window[loIdx].Low
	rng := hi - lo
	if rng <= 0 {
		return model.Pullback{Direction: model.BiasNeutral, Description: "flat window, no range to retrace"}
	}

	price := window[len(window)-1].Close

	if hiIdx >= loIdx {
		// High is the more recent extreme: rally, then pullback down.
		depth := (hi - price) / rng * 100
		score, label := bucketDepth(depth, 1)
		return model.Pullback{
			Direction:   model.BiasBullish,
			Depth:       depth,
			Score:       score,
			Description: fmt.Sprintf("%s pullback, %.1f%% off the swing high", label, depth),
		}
	}

	// Low is the more recent extreme: sell-off, then bounce up.
	depth := (price - lo) / rng * 100
	score, label := bucketDepth(depth, -1)
	return model.Pullback{
		Direction:   model.BiasBearish,
		Depth:       depth,
		Score:       score,
		Description: fmt.Sprintf("%s bounce, %.1f%% off the swing low", label, depth),
	}
}

// bucketDepth maps a retracement depth to its Fibonacci bucket. sign is +1
// for pullbacks in an up-move and -1 for bounces in a down-move.
func bucketDepth(depth float64, sign int) (int, string) {
	switch {
	case depth > fibDeep:
		return -sign, "deep"
	case depth >= fibIdeal:
		return 2 * sign, "ideal"
	case depth >= fibShallow:
		return sign, "shallow"
	default:
		return 0, "negligible"
	}
}
