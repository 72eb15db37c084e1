// Package indicator provides technical indicator calculations over candle
// windows.
//
// Every function is a pure transform: it takes a full window (closes or
// candles) and returns one or more Series aligned 1:1 with the input.
// Entries before an indicator's warm-up period are not defined; instead of
// null-padding, each Series carries the index its values become valid at.
package indicator

import "signal-systemv1/internal/model"

// Series is an indicator output aligned 1:1 with its input window.
// Values[i] is defined only for i >= ValidFrom; ValidFrom >= len(Values)
// means the series never produced a value.
type Series struct {
	Values    []float64
	ValidFrom int
}

// newSeries allocates an all-invalid series of length n.
func newSeries(n int) Series {
	return Series{Values: make([]float64, n), ValidFrom: n}
}

// Len returns the series length (always the input window length).
func (s Series) Len() int { return len(s.Values) }

// At returns the value at index i and whether it is defined.
func (s Series) At(i int) (float64, bool) {
	if i < s.ValidFrom || i >= len(s.Values) {
		return 0, false
	}
	return s.Values[i], true
}

// Last returns the latest defined value.
func (s Series) Last() (float64, bool) {
	return s.At(len(s.Values) - 1)
}

// Prev returns the second-latest defined value. Because warm-up is a
// contiguous prefix, this is simply the value one index earlier — no
// backward scan is needed.
func (s Series) Prev() (float64, bool) {
	return s.At(len(s.Values) - 2)
}

// Reading extracts the latest/previous snapshot of the series. With a
// single defined value, Previous mirrors Current so delta-based scoring
// sees no movement.
func (s Series) Reading() model.Reading {
	cur, ok := s.Last()
	if !ok {
		return model.Reading{}
	}
	prev, ok := s.Prev()
	if !ok {
		prev = cur
	}
	return model.Reading{Current: cur, Previous: prev, Valid: true}
}

// subSeries applies fn to the valid sub-range of s and re-aligns the
// result to the original index space. Used for indicators computed on
// another indicator's output (MACD signal line, StochRSI smoothing).
func subSeries(s Series, fn func([]float64) Series) Series {
	out := newSeries(len(s.Values))
	if s.ValidFrom >= len(s.Values) {
		return out
	}
	inner := fn(s.Values[s.ValidFrom:])
	copy(out.Values[s.ValidFrom:], inner.Values)
	out.ValidFrom = s.ValidFrom + inner.ValidFrom
	return out
}
