package engine

import (
	"time"

	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/structure"
)

// Engine analyzes candle windows against a fixed configuration. It holds
// no mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config { return e.cfg }

// Analyze runs the full pipeline over one candle window: indicators,
// structure analysis, scoring, aggregation and signal composition.
// Candles must be in ascending time order, oldest first. Returns a
// *model.InsufficientDataError when the window is shorter than
// Config.MinCandles.
func (e *Engine) Analyze(candles []model.Candle) (*model.AnalysisResult, error) {
	if len(candles) < e.cfg.MinCandles {
		return nil, &model.InsufficientDataError{Got: len(candles), Need: e.cfg.MinCandles}
	}

	last := candles[len(candles)-1]
	price := last.Close
	closes := model.Closes(candles)

	snap := e.snapshot(candles, closes)

	ms := structure.AnalyzeMarketStructure(candles)
	vol := structure.AnalyzeVolume(candles)
	ob := structure.AnalyzeOrderBlock(candles, price)
	pb := structure.AnalyzePullback(candles)
	sr := structure.FindSupportResistance(candles, price)

	ind := model.IndicatorAnalyses{
		RSI:       scoreRSI(snap.RSI, e.cfg),
		MACD:      scoreMACD(snap.MACD),
		EMA:       scoreEMACross(snap.EMA, price),
		Bollinger: scoreBollinger(snap.Bollinger, price),
		Trend:     scoreTrend(snap.EMA, price),
		ADX:       analyzeADX(snap.ADX, e.cfg),
	}

	agg := aggregate(ind, structureScores{
		marketStructure: ms.Score,
		volume:          vol.Score,
		orderBlock:      ob.Score,
		pullback:        pb.Score,
	})

	sig := compose(price, agg, ind, sr, e.cfg)

	return &model.AnalysisResult{
		Timestamp:          time.Now().UTC(),
		Symbol:             last.Symbol,
		Interval:           last.Interval,
		CurrentPrice:       price,
		Indicators:         snap,
		IndicatorAnalysis:  ind,
		Analysis:           agg,
		Signal:             sig,
		MarketStructure:    ms,
		VolumeConfirmation: vol,
		OrderBlock:         ob,
		Pullback:           pb,
		SupportResistance:  sr,
	}, nil
}

// snapshot computes every indicator series over the window and extracts
// the latest readings.
func (e *Engine) snapshot(candles []model.Candle, closes []float64) model.IndicatorSnapshot {
	var snap model.IndicatorSnapshot

	snap.RSI = indicator.RSI(closes, e.cfg.RSIPeriod).Reading()
	snap.ATR = indicator.ATR(candles, e.cfg.ATRPeriod).Reading()

	macd := indicator.MACD(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	if cur, ok := macd.Histogram.Last(); ok {
		prev, ok := macd.Histogram.Prev()
		if !ok {
			prev = cur
		}
		line, _ := macd.MACD.Last()
		sigLine, _ := macd.Signal.Last()
		snap.MACD = model.MACDSnapshot{
			MACD:          line,
			Signal:        sigLine,
			Histogram:     cur,
			PrevHistogram: prev,
			Valid:         true,
		}
	}

	fast := indicator.EMA(closes, e.cfg.EMAFast)
	slow := indicator.EMA(closes, e.cfg.EMASlow)
	trend := indicator.EMA(closes, e.cfg.EMATrend)
	if t, ok := trend.Last(); ok {
		f, _ := fast.Last()
		s, _ := slow.Last()
		pf, ok := fast.Prev()
		if !ok {
			pf = f
		}
		ps, ok := slow.Prev()
		if !ok {
			ps = s
		}
		snap.EMA = model.EMASnapshot{
			Fast:     f,
			Slow:     s,
			Trend:    t,
			PrevFast: pf,
			PrevSlow: ps,
			Valid:    true,
		}
	}

	bb := indicator.Bollinger(closes, e.cfg.BollingerPeriod, e.cfg.BollingerStdDev)
	if mid, ok := bb.Middle.Last(); ok {
		up, _ := bb.Upper.Last()
		lo, _ := bb.Lower.Last()
		snap.Bollinger = model.BollingerSnapshot{Upper: up, Middle: mid, Lower: lo, Valid: true}
	}

	adx := indicator.ADX(candles, e.cfg.ADXPeriod)
	if v, ok := adx.ADX.Last(); ok {
		plus, _ := adx.PlusDI.Last()
		minus, _ := adx.MinusDI.Last()
		snap.ADX = model.ADXSnapshot{ADX: v, PlusDI: plus, MinusDI: minus, Valid: true}
	}

	stoch := indicator.StochRSI(closes, e.cfg.StochRSIPeriod, e.cfg.StochPeriod, e.cfg.StochKSmooth, e.cfg.StochDSmooth)
	if k, ok := stoch.K.Last(); ok {
		d, _ := stoch.D.Last()
		pk, ok := stoch.K.Prev()
		if !ok {
			pk = k
		}
		pd, ok := stoch.D.Prev()
		if !ok {
			pd = d
		}
		snap.StochRSI = model.StochRSISnapshot{K: k, D: d, PrevK: pk, PrevD: pd, Valid: true}
	}

	return snap
}
