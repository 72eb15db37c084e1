package structure

import (
	"fmt"

	"signal-systemv1/internal/model"
)

const (
	orderBlockLookback     = 30
	orderBlockConfirmBars  = 3
	orderBlockDisplacement = 0.01 // close must clear the block by 1%
	orderBlockZoneStretch  = 0.05 // zone extends 5% past the block's far edge
)

// AnalyzeOrderBlock scans the trailing 30 candles for order blocks: a
// bearish candle whose high is cleared by 1% within the next three closes
// marks a bullish (demand) block, and mirrored for bearish (supply)
// blocks. A block matters only while the current price sits inside its
// zone — [low, high·1.05] for bullish, [low·0.95, high] for bearish. When
// both kinds are active, the most recent block wins.
func AnalyzeOrderBlock(candles []model.Candle, currentPrice float64) model.OrderBlock {
	window := model.Tail(candles, orderBlockLookback)

	best := model.OrderBlock{Type: model.OrderBlockNone, Description: "price is not inside an order block"}
	bestIndex := -1

	for i := 0; i < len(window)-1; i++ {
		c := &window[i]

		if c.IsBearish() && confirmedAbove(window, i, c.High*(1+orderBlockDisplacement)) {
			inZone := currentPrice >= c.Low && currentPrice <= c.High*(1+orderBlockZoneStretch)
			if inZone && i > bestIndex {
				bestIndex = i
				best = model.OrderBlock{
					Type:        model.OrderBlockBullish,
					High:        c.High,
					Low:         c.Low,
					Score:       2,
					Description: fmt.Sprintf("price inside bullish order block %.4f-%.4f", c.Low, c.High),
				}
			}
		}

		if c.IsBullish() && confirmedBelow(window, i, c.Low*(1-orderBlockDisplacement)) {
			inZone := currentPrice >= c.Low*(1-orderBlockZoneStretch) && currentPrice <= c.High
			if inZone && i > bestIndex {
				bestIndex = i
				best = model.OrderBlock{
					Type:        model.OrderBlockBearish,
					High:        c.High,
					Low:         c.Low,
					Score:       -2,
					Description: fmt.Sprintf("price inside bearish order block %.4f-%.4f", c.Low, c.High),
				}
			}
		}
	}
	return best
}

// confirmedAbove reports whether any of the three closes after index i
// exceeds level.
func confirmedAbove(window []model.Candle, i int, level float64) bool {
	for j := i + 1; j <= i+orderBlockConfirmBars && j < len(window); j++ {
		if window[j].Close > level {
			return true
		}
	}
	return false
}

// confirmedBelow reports whether any of the three closes after index i
// falls below level.
func confirmedBelow(window []model.Candle, i int, level float64) bool {
	for j := i + 1; j <= i+orderBlockConfirmBars && j < len(window); j++ {
		if window[j].Close < level {
			return true
		}
	}
	return false
}
