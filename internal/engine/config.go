// Package engine turns a candle window into a scored, gated trading
// recommendation. It is a pure synchronous function of its inputs: no
// goroutines, no I/O, no state across invocations — callers may run it
// concurrently for many symbols without coordination.
package engine

// Config is the flat set of named thresholds driving the engine. All
// scoring and gating constants live here so threshold tuning is data, not
// forked code; Preset returns the named variants.
type Config struct {
	// MinCandles is the smallest window Analyze accepts.
	MinCandles int

	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	EMAFast  int
	EMASlow  int
	EMATrend int

	BollingerPeriod int
	BollingerStdDev float64

	ATRPeriod int

	ADXPeriod            int
	ADXTrendThreshold    float64
	ADXSidewaysThreshold float64

	StochRSIPeriod int
	StochPeriod    int
	StochKSmooth   int
	StochDSmooth   int

	// Signal gates.
	MinScoreForSignal int
	MinConfluence     int

	// Stop/target derivation.
	RiskRewardRatio    float64 // target distance as a multiple of the stop distance
	MinStopDistancePct float64 // minimum stop distance, percent of entry

	// Leverage derivation. TargetRiskPercent is the fraction of account
	// balance accepted as loss on a stop-out.
	TargetRiskPercent float64
	MinLeverage       int
	MaxLeverage       int
}

// DefaultConfig returns the standard preset.
func DefaultConfig() Config {
	return Config{
		MinCandles: 50,

		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,

		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,

		EMAFast:  9,
		EMASlow:  21,
		EMATrend: 50,

		BollingerPeriod: 20,
		BollingerStdDev: 2,

		ATRPeriod: 14,

		ADXPeriod:            14,
		ADXTrendThreshold:    25,
		ADXSidewaysThreshold: 20,

		StochRSIPeriod: 14,
		StochPeriod:    14,
		StochKSmooth:   3,
		StochDSmooth:   3,

		MinScoreForSignal: 4,
		MinConfluence:     3,

		RiskRewardRatio:    1.5,
		MinStopDistancePct: 1.5,

		TargetRiskPercent: 25,
		MinLeverage:       5,
		MaxLeverage:       15,
	}
}

// ConservativeConfig returns a preset with stricter gates: more agreement
// required before a signal is emitted.
func ConservativeConfig() Config {
	cfg := DefaultConfig()
	cfg.MinScoreForSignal = 6
	cfg.MinConfluence = 4
	cfg.ADXSidewaysThreshold = 22
	cfg.MaxLeverage = 10
	return cfg
}

// Preset returns a named configuration. Unknown names fall back to the
// default preset.
func Preset(name string) Config {
	switch name {
	case "conservative":
		return ConservativeConfig()
	default:
		return DefaultConfig()
	}
}
