package indicator

import (
	"math"

	"signal-systemv1/internal/model"
)

// ADXResult holds the ADX and directional index series.
type ADXResult struct {
	ADX     Series
	PlusDI  Series
	MinusDI Series
}

// ADX computes the Average Directional Index. Directional movement and
// true range are taken per adjacent candle pair (the first candle drops
// out), each smoothed with Wilder's recursive method:
//
//	smoothed[i] = smoothed[i-1] - smoothed[i-1]/period + raw[i]
//
// seeded by a simple average over the first period raw values. Then
//
//	+DI/-DI = 100 · smoothedDM / smoothedTR   (0 when smoothedTR is 0)
//	DX      = 100 · |+DI - -DI| / (+DI + -DI) (0 when the denominator is 0)
//	ADX     = WilderSmooth(DX, period)
//
// +DI/-DI are defined from candle index period, ADX from 2·period-1.
func ADX(candles []model.Candle, period int) ADXResult {
	n := len(candles)
	res := ADXResult{ADX: newSeries(n), PlusDI: newSeries(n), MinusDI: newSeries(n)}
	if period <= 0 || n < period+1 {
		return res
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}

		h, l := candles[i].High, candles[i].Low
		prevClose := candles[i-1].Close
		r := h - l
		if v := math.Abs(h - prevClose); v > r {
			r = v
		}
		if v := math.Abs(l - prevClose); v > r {
			r = v
		}
		tr[i] = r
	}

	smPlus := wilderSmooth(plusDM, period)
	smMinus := wilderSmooth(minusDM, period)
	smTR := wilderSmooth(tr, period)

	dx := make([]float64, n)
	for i := period; i < n; i++ {
		if smTR[i] != 0 {
			res.PlusDI.Values[i] = 100 * smPlus[i] / smTR[i]
			res.MinusDI.Values[i] = 100 * smMinus[i] / smTR[i]
		}
		sum := res.PlusDI.Values[i] + res.MinusDI.Values[i]
		if sum != 0 {
			dx[i] = 100 * math.Abs(res.PlusDI.Values[i]-res.MinusDI.Values[i]) / sum
		}
	}
	res.PlusDI.ValidFrom = period
	res.MinusDI.ValidFrom = period

	// ADX: Wilder smoothing of DX, which itself starts at index period.
	adxFrom := 2*period - 1
	if adxFrom >= n {
		return res
	}
	seed := 0.0
	for i := period; i <= adxFrom; i++ {
		seed += dx[i]
	}
	seed /= float64(period)
	res.ADX.Values[adxFrom] = seed
	for i := adxFrom + 1; i < n; i++ {
		prev := res.ADX.Values[i-1]
		res.ADX.Values[i] = (prev*float64(period-1) + dx[i]) / float64(period)
	}
	res.ADX.ValidFrom = adxFrom
	return res
}

// wilderSmooth applies Wilder's recursive smoothing to raw values that
// start at index 1 (index 0 has no candle pair). The returned slice is
// defined from index period.
func wilderSmooth(raw []float64, period int) []float64 {
	out := make([]float64, len(raw))
	if len(raw) < period+1 {
		return out
	}

	seed := 0.0
	for i := 1; i <= period; i++ {
		seed += raw[i]
	}
	seed /= float64(period)
	out[period] = seed

	p := float64(period)
	for i := period + 1; i < len(raw); i++ {
		out[i] = out[i-1] - out[i-1]/p + raw[i]
	}
	return out
}
