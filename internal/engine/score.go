package engine

import (
	"fmt"

	"signal-systemv1/internal/model"
)

// Each scorer maps one indicator snapshot to a Verdict in [-3, +3].
// Positive scores favor longs, negative favor shorts, zero is neutral.
// An invalid snapshot always scores zero.

func scoreRSI(r model.Reading, cfg Config) model.Verdict {
	if !r.Valid {
		return neutral("RSI warming up")
	}
	v, rising := r.Current, r.Current > r.Previous
	switch {
	case v <= cfg.RSIOversold && rising:
		return verdict(3, model.BiasBullish, fmt.Sprintf("RSI %.1f oversold and turning up", v))
	case v <= cfg.RSIOversold:
		return verdict(2, model.BiasBullish, fmt.Sprintf("RSI %.1f oversold", v))
	case v >= cfg.RSIOverbought && !rising:
		return verdict(-3, model.BiasBearish, fmt.Sprintf("RSI %.1f overbought and turning down", v))
	case v >= cfg.RSIOverbought:
		return verdict(-2, model.BiasBearish, fmt.Sprintf("RSI %.1f overbought", v))
	case v < 40:
		return verdict(1, model.BiasBullish, fmt.Sprintf("RSI %.1f below midline", v))
	case v > 60:
		return verdict(-1, model.BiasBearish, fmt.Sprintf("RSI %.1f above midline", v))
	}
	return neutral(fmt.Sprintf("RSI %.1f neutral", v))
}

func scoreMACD(m model.MACDSnapshot) model.Verdict {
	if !m.Valid {
		return neutral("MACD warming up")
	}
	h, prev := m.Histogram, m.PrevHistogram
	switch {
	// A histogram sign flip is the strongest momentum event: score it at
	// full weight regardless of magnitude.
	case prev <= 0 && h > 0:
		return verdict(3, model.BiasBullish, "MACD histogram flipped positive")
	case prev >= 0 && h < 0:
		return verdict(-3, model.BiasBearish, "MACD histogram flipped negative")
	case h > 0 && h > prev:
		return verdict(2, model.BiasBullish, "MACD bullish and accelerating")
	case h > 0:
		return verdict(1, model.BiasBullish, "MACD bullish, momentum fading")
	case h < 0 && h < prev:
		return verdict(-2, model.BiasBearish, "MACD bearish and accelerating")
	case h < 0:
		return verdict(-1, model.BiasBearish, "MACD bearish, momentum fading")
	}
	return neutral("MACD flat")
}

func scoreEMACross(e model.EMASnapshot, price float64) model.Verdict {
	if !e.Valid {
		return neutral("EMA warming up")
	}
	switch {
	case e.PrevFast <= e.PrevSlow && e.Fast > e.Slow:
		return verdict(3, model.BiasBullish, "EMA golden cross")
	case e.PrevFast >= e.PrevSlow && e.Fast < e.Slow:
		return verdict(-3, model.BiasBearish, "EMA death cross")
	case e.Fast > e.Slow && price > e.Fast:
		return verdict(2, model.BiasBullish, "price above bullish EMA stack")
	case e.Fast > e.Slow:
		return verdict(1, model.BiasBullish, "fast EMA above slow")
	case e.Fast < e.Slow && price < e.Fast:
		return verdict(-2, model.BiasBearish, "price below bearish EMA stack")
	case e.Fast < e.Slow:
		return verdict(-1, model.BiasBearish, "fast EMA below slow")
	}
	return neutral("EMAs flat")
}

func scoreBollinger(b model.BollingerSnapshot, price float64) model.Verdict {
	if !b.Valid || b.Upper <= b.Lower {
		return neutral("Bollinger bands unavailable")
	}
	// Proximity zones cover the outer 20% of each half-band.
	lowerZone := b.Lower + (b.Middle-b.Lower)*0.2
	upperZone := b.Upper - (b.Upper-b.Middle)*0.2
	switch {
	case price <= b.Lower:
		return verdict(2, model.BiasBullish, "price at lower Bollinger band")
	case price >= b.Upper:
		return verdict(-2, model.BiasBearish, "price at upper Bollinger band")
	case price < lowerZone:
		return verdict(1, model.BiasBullish, "price near lower Bollinger band")
	case price > upperZone:
		return verdict(-1, model.BiasBearish, "price near upper Bollinger band")
	}
	return neutral("price inside Bollinger bands")
}

// scoreTrend classifies the EMA stack into a trend direction. Full stacking
// with price leading scores the maximum in either direction.
func scoreTrend(e model.EMASnapshot, price float64) model.TrendVerdict {
	if !e.Valid {
		return model.TrendVerdict{
			Verdict:   neutral("trend EMAs warming up"),
			Direction: model.TrendSideways,
		}
	}
	var (
		dir   model.TrendDirection
		score int
		bias  model.Bias
		desc  string
	)
	switch {
	case price > e.Fast && e.Fast > e.Slow && e.Slow > e.Trend:
		dir, score, bias, desc = model.TrendStrongUp, 3, model.BiasBullish, "strong uptrend, price above full EMA stack"
	case e.Fast > e.Slow && e.Slow > e.Trend:
		dir, score, bias, desc = model.TrendUp, 2, model.BiasBullish, "uptrend, EMAs stacked bullish"
	case e.Fast > e.Slow:
		dir, score, bias, desc = model.TrendWeakUp, 1, model.BiasBullish, "weak uptrend"
	case price < e.Fast && e.Fast < e.Slow && e.Slow < e.Trend:
		dir, score, bias, desc = model.TrendStrongDown, -3, model.BiasBearish, "strong downtrend, price below full EMA stack"
	case e.Fast < e.Slow && e.Slow < e.Trend:
		dir, score, bias, desc = model.TrendDown, -2, model.BiasBearish, "downtrend, EMAs stacked bearish"
	case e.Fast < e.Slow:
		dir, score, bias, desc = model.TrendWeakDown, -1, model.BiasBearish, "weak downtrend"
	default:
		dir, score, bias, desc = model.TrendSideways, 0, model.BiasNeutral, "no trend, EMAs flat"
	}
	return model.TrendVerdict{
		Verdict:   verdict(score, bias, desc),
		Direction: dir,
	}
}

// analyzeADX classifies trend strength. It never contributes to the score;
// it only gates the composer.
func analyzeADX(a model.ADXSnapshot, cfg Config) model.ADXVerdict {
	if !a.Valid {
		return model.ADXVerdict{}
	}
	return model.ADXVerdict{
		Value:     a.ADX,
		IsSideway: a.ADX < cfg.ADXSidewaysThreshold,
		HasTrend:  a.ADX >= cfg.ADXTrendThreshold,
	}
}

func verdict(score int, bias model.Bias, desc string) model.Verdict {
	return model.Verdict{Signal: bias, Score: score, Description: desc}
}

func neutral(desc string) model.Verdict {
	return model.Verdict{Signal: model.BiasNeutral, Score: 0, Description: desc}
}
