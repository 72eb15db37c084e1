package indicator

// MACDResult holds the three MACD output series.
type MACDResult struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACD computes Moving Average Convergence Divergence:
//
//	macd      = EMA(fast) - EMA(slow)
//	signal    = EMA(macd over its valid sub-range, signalPeriod), re-aligned
//	histogram = macd - signal
//
// The MACD line is defined from index slow-1, the signal line and
// histogram from slow+signalPeriod-2.
func MACD(closes []float64, fast, slow, signalPeriod int) MACDResult {
	n := len(closes)
	res := MACDResult{MACD: newSeries(n), Signal: newSeries(n), Histogram: newSeries(n)}
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 || n < slow {
		return res
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	for i := slow - 1; i < n; i++ {
		res.MACD.Values[i] = emaFast.Values[i] - emaSlow.Values[i]
	}
	res.MACD.ValidFrom = slow - 1

	res.Signal = subSeries(res.MACD, func(sub []float64) Series {
		return EMA(sub, signalPeriod)
	})

	if res.Signal.ValidFrom < n {
		for i := res.Signal.ValidFrom; i < n; i++ {
			res.Histogram.Values[i] = res.MACD.Values[i] - res.Signal.Values[i]
		}
		res.Histogram.ValidFrom = res.Signal.ValidFrom
	}
	return res
}
