package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV candle for a single symbol and interval.
// Candles arrive ascending by OpenTime; the engine assumes no gaps and
// does not validate monotonicity.
type Candle struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"` // e.g. "15m", "1h"
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Key returns a unique key for this candle's market: "symbol:interval".
func (c *Candle) Key() string {
	return c.Symbol + ":" + c.Interval
}

// IsBullish reports whether the candle closed above its open.
func (c *Candle) IsBullish() bool { return c.Close > c.Open }

// IsBearish reports whether the candle closed below its open.
func (c *Candle) IsBearish() bool { return c.Close < c.Open }

// Range returns the high-low span of the candle.
func (c *Candle) Range() float64 { return c.High - c.Low }

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Closes extracts the close series from a candle window.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

// Highs extracts the high series from a candle window.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].High
	}
	return out
}

// Lows extracts the low series from a candle window.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Low
	}
	return out
}

// Volumes extracts the volume series from a candle window.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Volume
	}
	return out
}

// Tail returns the trailing n candles of the window (the whole window if
// fewer than n are available).
func Tail(candles []Candle, n int) []Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
