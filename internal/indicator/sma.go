package indicator

// SMA computes the Simple Moving Average: the arithmetic mean of the
// trailing period values. Defined from index period-1. A running sum keeps
// the whole pass O(n).
func SMA(data []float64, period int) Series {
	out := newSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			out.Values[i] = sum / float64(period)
		}
	}
	out.ValidFrom = period - 1
	return out
}
