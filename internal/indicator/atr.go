package indicator

import (
	"math"

	"signal-systemv1/internal/model"
)

// TrueRange computes the per-candle true range:
//
//	max(high-low, |high-prevClose|, |low-prevClose|)
//
// The first candle has no previous close and uses high-low. Defined for
// every index.
func TrueRange(candles []model.Candle) Series {
	out := newSeries(len(candles))
	if len(candles) == 0 {
		return out
	}

	out.Values[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		h, l := candles[i].High, candles[i].Low
		prevClose := candles[i-1].Close
		tr := h - l
		if v := math.Abs(h - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(l - prevClose); v > tr {
			tr = v
		}
		out.Values[i] = tr
	}
	out.ValidFrom = 0
	return out
}

// ATR computes the Average True Range as an EMA of the true range.
// Defined from index period-1.
func ATR(candles []model.Candle, period int) Series {
	return EMA(TrueRange(candles).Values, period)
}
