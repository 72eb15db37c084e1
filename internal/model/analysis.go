package model

import (
	"encoding/json"
	"time"
)

// Action is the directional recommendation of a signal.
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionWait  Action = "WAIT"
)

// Bias is the direction a single indicator or analyzer leans.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// Strength classifies the magnitude of the aggregate score.
type Strength string

const (
	StrengthWeak     Strength = "WEAK"
	StrengthModerate Strength = "MODERATE"
	StrengthStrong   Strength = "STRONG"
)

// TrendDirection classifies the EMA-stack trend.
type TrendDirection string

const (
	TrendStrongUp   TrendDirection = "STRONG_UPTREND"
	TrendUp         TrendDirection = "UPTREND"
	TrendWeakUp     TrendDirection = "WEAK_UPTREND"
	TrendSideways   TrendDirection = "SIDEWAYS"
	TrendWeakDown   TrendDirection = "WEAK_DOWNTREND"
	TrendDown       TrendDirection = "DOWNTREND"
	TrendStrongDown TrendDirection = "STRONG_DOWNTREND"
)

// LeverageRisk classifies the effective account risk of a leveraged signal.
type LeverageRisk string

const (
	LeverageRiskLow      LeverageRisk = "LOW"
	LeverageRiskModerate LeverageRisk = "MODERATE"
	LeverageRiskHigh     LeverageRisk = "HIGH"
)

// StructureTrend classifies the swing high/low pattern of the window.
type StructureTrend string

const (
	StructureUptrend   StructureTrend = "UPTREND"
	StructureDowntrend StructureTrend = "DOWNTREND"
	StructureSideways  StructureTrend = "SIDEWAYS"
)

// OrderBlockType identifies the kind of order block price currently sits in.
type OrderBlockType string

const (
	OrderBlockBullish OrderBlockType = "BULLISH"
	OrderBlockBearish OrderBlockType = "BEARISH"
	OrderBlockNone    OrderBlockType = "NONE"
)

// Reading is a snapshot of one indicator series: the latest computed value
// and the one computed before it. "Previous" is the prior computed value,
// not the prior candle's — warm-up gaps are skipped. Valid is false while
// the series has produced no value at all; with a single computed value,
// Previous equals Current.
type Reading struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Valid    bool    `json:"valid"`
}

// MACDSnapshot holds the latest MACD line, signal line and histogram, plus
// the prior histogram value for zero-cross detection.
type MACDSnapshot struct {
	MACD          float64 `json:"macd"`
	Signal        float64 `json:"signal"`
	Histogram     float64 `json:"histogram"`
	PrevHistogram float64 `json:"prevHistogram"`
	Valid         bool    `json:"valid"`
}

// EMASnapshot holds the latest fast/slow/trend EMA values and the prior
// fast/slow pair for crossover detection.
type EMASnapshot struct {
	Fast     float64 `json:"fast"`
	Slow     float64 `json:"slow"`
	Trend    float64 `json:"trend"`
	PrevFast float64 `json:"prevFast"`
	PrevSlow float64 `json:"prevSlow"`
	Valid    bool    `json:"valid"`
}

// BollingerSnapshot holds the latest Bollinger band values.
type BollingerSnapshot struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Valid  bool    `json:"valid"`
}

// ADXSnapshot holds the latest ADX and directional index values.
type ADXSnapshot struct {
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plusDi"`
	MinusDI float64 `json:"minusDi"`
	Valid   bool    `json:"valid"`
}

// StochRSISnapshot holds the latest Stochastic-RSI %K/%D pair.
type StochRSISnapshot struct {
	K     float64 `json:"k"`
	D     float64 `json:"d"`
	PrevK float64 `json:"prevK"`
	PrevD float64 `json:"prevD"`
	Valid bool    `json:"valid"`
}

// IndicatorSnapshot bundles the latest readings of every indicator the
// engine computes for one window.
type IndicatorSnapshot struct {
	RSI       Reading           `json:"rsi"`
	MACD      MACDSnapshot      `json:"macd"`
	EMA       EMASnapshot       `json:"ema"`
	Bollinger BollingerSnapshot `json:"bollingerBands"`
	ATR       Reading           `json:"atr"`
	ADX       ADXSnapshot       `json:"adx"`
	StochRSI  StochRSISnapshot  `json:"stochRsi"`
}

// Verdict is the scored outcome of a single indicator analysis.
type Verdict struct {
	Signal      Bias   `json:"signal"`
	Score       int    `json:"score"`
	Description string `json:"description"`
}

// TrendVerdict is the composite trend classification with its score.
type TrendVerdict struct {
	Verdict
	Direction TrendDirection `json:"direction"`
}

// ADXVerdict carries the trend-strength gates. ADX contributes no score.
type ADXVerdict struct {
	Value     float64 `json:"value"`
	IsSideway bool    `json:"isSideway"`
	HasTrend  bool    `json:"hasTrend"`
}

// IndicatorAnalyses groups the per-indicator verdicts that feed the
// aggregate score.
type IndicatorAnalyses struct {
	RSI       Verdict      `json:"rsi"`
	MACD      Verdict      `json:"macd"`
	EMA       Verdict      `json:"ema"`
	Bollinger Verdict      `json:"bollingerBands"`
	Trend     TrendVerdict `json:"trend"`
	ADX       ADXVerdict   `json:"adx"`
}

// AggregateAnalysis sums the per-indicator and structure scores and
// classifies the result.
type AggregateAnalysis struct {
	TotalScore        int      `json:"totalScore"`
	AverageScore      float64  `json:"averageScore"`
	Strength          Strength `json:"strength"`
	BullishConfluence int      `json:"bullishConfluence"`
	BearishConfluence int      `json:"bearishConfluence"`
	IsSideway         bool     `json:"isSideway"`
	HasTrend          bool     `json:"hasTrend"`
}

// MarketStructure is the swing-pattern classification of the window.
type MarketStructure struct {
	Trend       StructureTrend `json:"trend"`
	Score       int            `json:"score"`
	Description string         `json:"description"`
}

// VolumeConfirmation scores the latest volume against its trailing average.
type VolumeConfirmation struct {
	Ratio       float64 `json:"ratio"`
	Score       int     `json:"score"`
	Description string  `json:"description"`
}

// OrderBlock describes the most recent order block price currently trades
// inside, if any.
type OrderBlock struct {
	Type        OrderBlockType `json:"type"`
	High        float64        `json:"high,omitempty"`
	Low         float64        `json:"low,omitempty"`
	Score       int            `json:"score"`
	Description string         `json:"description"`
}

// Pullback classifies the retracement depth from the window's extremes
// into Fibonacci buckets.
type Pullback struct {
	Direction   Bias    `json:"direction"`
	Depth       float64 `json:"depth"` // percent of the window range
	Score       int     `json:"score"`
	Description string  `json:"description"`
}

// SupportResistance lists detected levels and the nearest actionable ones.
// Supports are sorted descending (closest below price first), resistances
// ascending. Nearest levels fall back to price·0.97 / price·1.03 when no
// fractal level qualifies.
type SupportResistance struct {
	Supports          []float64 `json:"supports"`
	Resistances       []float64 `json:"resistances"`
	NearestSupport    float64   `json:"nearestSupport"`
	NearestResistance float64   `json:"nearestResistance"`
}

// Signal is the final trading recommendation.
//
// Invariants: for LONG, stopLoss < entry < takeProfit; for SHORT,
// takeProfit < entry < stopLoss; leverage is always within the composer's
// configured bounds; WAIT carries no stop or target.
type Signal struct {
	Action        Action       `json:"action"`
	Confidence    float64      `json:"confidence"` // percent
	Strength      Strength     `json:"strength"`
	Entry         float64      `json:"entry"`
	StopLoss      float64      `json:"stopLoss,omitempty"`
	TakeProfit    float64      `json:"takeProfit,omitempty"`
	RiskPercent   float64      `json:"riskPercent,omitempty"`
	RewardPercent float64      `json:"rewardPercent,omitempty"`
	RiskReward    float64      `json:"riskReward,omitempty"`
	Leverage      int          `json:"leverage,omitempty"`
	LeverageRisk  LeverageRisk `json:"leverageRisk,omitempty"`
	TotalScore    int          `json:"totalScore"`
	AverageScore  float64      `json:"averageScore"`
	Reasons       []string     `json:"reasons"`
}

// AnalysisResult is the full output of one engine invocation. It is
// serialized verbatim as the wire payload consumed by scanners and
// presentation layers; field names are part of the contract.
//
// Timestamp is advisory only and never influences a decision.
type AnalysisResult struct {
	Timestamp          time.Time          `json:"timestamp"`
	Symbol             string             `json:"symbol"`
	Interval           string             `json:"interval"`
	CurrentPrice       float64            `json:"currentPrice"`
	Indicators         IndicatorSnapshot  `json:"indicators"`
	IndicatorAnalysis  IndicatorAnalyses  `json:"indicatorAnalysis"`
	Analysis           AggregateAnalysis  `json:"analysis"`
	Signal             Signal             `json:"signal"`
	MarketStructure    MarketStructure    `json:"marketStructure"`
	VolumeConfirmation VolumeConfirmation `json:"volumeConfirmation"`
	OrderBlock         OrderBlock         `json:"orderBlock"`
	Pullback           Pullback           `json:"pullback"`
	SupportResistance  SupportResistance  `json:"supportResistance"`
}

// Key returns "symbol:interval".
func (r *AnalysisResult) Key() string {
	return r.Symbol + ":" + r.Interval
}

// LatestKey returns the Redis key holding the most recent analysis:
// "analysis:latest:{symbol}:{interval}".
func (r *AnalysisResult) LatestKey() string {
	return "analysis:latest:" + r.Symbol + ":" + r.Interval
}

// StreamKey returns the Redis stream key for emitted signals:
// "signals:{interval}".
func (r *AnalysisResult) StreamKey() string {
	return "signals:" + r.Interval
}

// JSON returns the JSON-encoded result (ignoring errors for hot-path usage).
func (r *AnalysisResult) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}

// Actionable reports whether the result carries a non-WAIT signal.
func (r *AnalysisResult) Actionable() bool {
	return r.Signal.Action != ActionWait
}
