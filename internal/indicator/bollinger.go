package indicator

import "math"

// BollingerResult holds the three band series.
type BollingerResult struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// Bollinger computes Bollinger Bands: middle = SMA(period), upper/lower =
// middle ± stdDev · population standard deviation of the trailing window.
// All three series are defined from index period-1. A zero-range window
// yields bands collapsed onto the middle line.
func Bollinger(closes []float64, period int, stdDev float64) BollingerResult {
	n := len(closes)
	res := BollingerResult{Upper: newSeries(n), Middle: newSeries(n), Lower: newSeries(n)}
	if period <= 0 || n < period {
		return res
	}

	res.Middle = SMA(closes, period)

	var sum, sumSq float64
	for i, v := range closes {
		sum += v
		sumSq += v * v
		if i >= period {
			old := closes[i-period]
			sum -= old
			sumSq -= old * old
		}
		if i < period-1 {
			continue
		}

		mean := sum / float64(period)
		variance := sumSq/float64(period) - mean*mean
		if variance < 0 {
			variance = 0 // float cancellation on near-constant windows
		}
		sd := math.Sqrt(variance)
		res.Upper.Values[i] = res.Middle.Values[i] + stdDev*sd
		res.Lower.Values[i] = res.Middle.Values[i] - stdDev*sd
	}
	res.Upper.ValidFrom = period - 1
	res.Lower.ValidFrom = period - 1
	return res
}
