package indicator

// RSI computes the Relative Strength Index over closing prices.
//
// The average gain/loss is a trailing period-window simple mean recomputed
// at every step, NOT Wilder's recursive average (ADX uses that). The two
// methods coexist intentionally: the scoring thresholds downstream were
// tuned against this variant, so unifying them would shift every RSI score.
//
// The first candle produces no delta, so values are defined from index
// period (one later than SMA's period-1). RSI is 100 exactly when the
// trailing average loss is zero.
func RSI(closes []float64, period int) Series {
	out := newSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(closes); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}

		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			out.Values[i] = 100
		} else {
			rs := avgGain / avgLoss
			out.Values[i] = 100 - 100/(1+rs)
		}
	}
	out.ValidFrom = period
	return out
}
