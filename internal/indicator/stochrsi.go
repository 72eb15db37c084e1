package indicator

// StochRSIResult holds the smoothed %K and %D series.
type StochRSIResult struct {
	K Series
	D Series
}

// StochRSI computes the Stochastic RSI: the RSI's position within its own
// trailing stochPeriod range, scaled to [0,100], then smoothed:
//
//	stoch = 100 · (rsi - min(rsi, stochPeriod)) / (max - min)
//	%K    = SMA(stoch, kSmooth)
//	%D    = SMA(%K, dSmooth)
//
// A flat RSI window (max == min) yields a neutral 50.
func StochRSI(closes []float64, rsiPeriod, stochPeriod, kSmooth, dSmooth int) StochRSIResult {
	n := len(closes)
	res := StochRSIResult{K: newSeries(n), D: newSeries(n)}
	if rsiPeriod <= 0 || stochPeriod <= 0 || kSmooth <= 0 || dSmooth <= 0 {
		return res
	}

	rsi := RSI(closes, rsiPeriod)

	stoch := subSeries(rsi, func(sub []float64) Series {
		out := newSeries(len(sub))
		if len(sub) < stochPeriod {
			return out
		}
		for i := stochPeriod - 1; i < len(sub); i++ {
			lo, hi := sub[i-stochPeriod+1], sub[i-stochPeriod+1]
			for _, v := range sub[i-stochPeriod+2 : i+1] {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			if hi == lo {
				out.Values[i] = 50
			} else {
				out.Values[i] = 100 * (sub[i] - lo) / (hi - lo)
			}
		}
		out.ValidFrom = stochPeriod - 1
		return out
	})

	res.K = subSeries(stoch, func(sub []float64) Series { return SMA(sub, kSmooth) })
	res.D = subSeries(res.K, func(sub []float64) Series { return SMA(sub, dSmooth) })
	return res
}
