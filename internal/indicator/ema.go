package indicator

// EMA computes the Exponential Moving Average. The seed at index period-1
// is the SMA of the first period values; thereafter
//
//	ema[i] = (data[i] - ema[i-1]) * k + ema[i-1],  k = 2/(period+1)
func EMA(data []float64, period int) Series {
	out := newSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	k := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range data[:period] {
		seed += v
	}
	seed /= float64(period)
	out.Values[period-1] = seed

	prev := seed
	for i := period; i < len(data); i++ {
		prev = (data[i]-prev)*k + prev
		out.Values[i] = prev
	}
	out.ValidFrom = period - 1
	return out
}
