package engine

import (
	"fmt"

	"signal-systemv1/internal/model"
)

// compose runs the gate pipeline and, if every gate passes, derives the
// full trade plan. All gates are evaluated even after one fails so a WAIT
// signal reports every reason it was rejected.
func compose(price float64, agg model.AggregateAnalysis, ind model.IndicatorAnalyses, sr model.SupportResistance, cfg Config) model.Signal {
	var rejections []string

	if agg.IsSideway {
		rejections = append(rejections,
			fmt.Sprintf("sideways market: ADX %.1f below %.1f", ind.ADX.Value, cfg.ADXSidewaysThreshold))
	}

	if absInt(agg.TotalScore) < cfg.MinScoreForSignal {
		rejections = append(rejections,
			fmt.Sprintf("score %d below minimum %d", agg.TotalScore, cfg.MinScoreForSignal))
	}

	var action model.Action
	var confluence int
	switch {
	case agg.TotalScore > 0:
		action, confluence = model.ActionLong, agg.BullishConfluence
	case agg.TotalScore < 0:
		action, confluence = model.ActionShort, agg.BearishConfluence
	default:
		action = model.ActionWait
		rejections = append(rejections, "no directional bias")
	}
	if action != model.ActionWait && confluence < cfg.MinConfluence {
		rejections = append(rejections,
			fmt.Sprintf("confluence %d below minimum %d", confluence, cfg.MinConfluence))
	}

	if action == model.ActionLong && (sr.NearestSupport <= 0 || sr.NearestSupport >= price) {
		rejections = append(rejections, "no support level below price for stop placement")
	}
	if action == model.ActionShort && sr.NearestResistance <= price {
		rejections = append(rejections, "no resistance level above price for stop placement")
	}

	if len(rejections) > 0 {
		return model.Signal{
			Action:       model.ActionWait,
			Strength:     agg.Strength,
			Entry:        price,
			TotalScore:   agg.TotalScore,
			AverageScore: agg.AverageScore,
			Reasons:      rejections,
		}
	}

	sig := buildTrade(action, price, sr, cfg)
	sig.Strength = agg.Strength
	sig.TotalScore = agg.TotalScore
	sig.AverageScore = agg.AverageScore
	sig.Confidence = confidence5(agg.TotalScore, confluence)
	sig.Leverage = deriveLeverage(agg.TotalScore, confluence, sig.RiskPercent, cfg)
	sig.LeverageRisk = classifyLeverageRisk(sig.RiskPercent, sig.Leverage)
	sig.Reasons = contributingReasons(ind, agg)
	return sig
}

// buildTrade derives entry, stop and target from the nearest levels. The
// stop is anchored just beyond the level and widened to the configured
// minimum distance; the target is the opposing level when it offers enough
// room, otherwise a risk-multiple of the stop distance. In all cases the
// target keeps a minimum 0.5% distance from entry.
func buildTrade(action model.Action, price float64, sr model.SupportResistance, cfg Config) model.Signal {
	entry := price
	minStop := entry * cfg.MinStopDistancePct / 100

	var stop, target float64
	if action == model.ActionLong {
		stop = sr.NearestSupport * 0.997
		if entry-stop < minStop {
			stop = entry - minStop
		}
		if sr.NearestResistance > entry*1.005 {
			target = sr.NearestResistance * 0.998
		} else {
			target = entry + cfg.RiskRewardRatio*(entry-stop)
		}
		if target < entry*1.005 {
			target = entry + cfg.RiskRewardRatio*(entry-stop)
		}
	} else {
		stop = sr.NearestResistance * 1.003
		if stop-entry < minStop {
			stop = entry + minStop
		}
		if sr.NearestSupport > 0 && sr.NearestSupport < entry*0.995 {
			target = sr.NearestSupport * 1.002
		} else {
			target = entry - cfg.RiskRewardRatio*(stop-entry)
		}
		if target > entry*0.995 {
			target = entry - cfg.RiskRewardRatio*(stop-entry)
		}
	}

	risk := absFloat(entry-stop) / entry * 100
	reward := absFloat(target-entry) / entry * 100
	var rr float64
	if risk > 0 {
		rr = reward / risk
	}

	return model.Signal{
		Action:        action,
		Entry:         entry,
		StopLoss:      stop,
		TakeProfit:    target,
		RiskPercent:   risk,
		RewardPercent: reward,
		RiskReward:    rr,
	}
}

// confidence5 maps the score and confluence onto a 0-95% confidence figure.
func confidence5(total, confluence int) float64 {
	c := 40 + float64(absInt(total))*4 + float64(confluence)*3
	if c > 95 {
		c = 95
	}
	return c
}

// deriveLeverage picks a conviction-tier leverage, caps it so a stop-out
// loses at most the target risk percent of the account, and clamps to the
// configured bounds.
func deriveLeverage(total, confluence int, riskPct float64, cfg Config) int {
	score := absInt(total)

	desired := 8
	switch {
	case score >= 10 && confluence >= 4:
		desired = 15
	case score >= 8 && confluence >= 4:
		desired = 12
	case score >= 6 && confluence >= 3:
		desired = 10
	}

	if riskPct > 0 {
		if capped := int(cfg.TargetRiskPercent / riskPct); capped < desired {
			desired = capped
		}
	}

	if desired < cfg.MinLeverage {
		desired = cfg.MinLeverage
	}
	if desired > cfg.MaxLeverage {
		desired = cfg.MaxLeverage
	}
	return desired
}

// classifyLeverageRisk labels the effective account risk of the position:
// riskPct·leverage is the percent of account lost on a stop-out.
func classifyLeverageRisk(riskPct float64, leverage int) model.LeverageRisk {
	effective := riskPct * float64(leverage)
	switch {
	case effective >= 35:
		return model.LeverageRiskHigh
	case effective >= 25:
		return model.LeverageRiskModerate
	default:
		return model.LeverageRiskLow
	}
}

// contributingReasons lists the descriptions of every analysis that pushed
// the score away from zero, most significant first.
func contributingReasons(ind model.IndicatorAnalyses, agg model.AggregateAnalysis) []string {
	reasons := make([]string, 0, 8)
	add := func(v model.Verdict) {
		if v.Score != 0 {
			reasons = append(reasons, v.Description)
		}
	}
	add(ind.Trend.Verdict)
	add(ind.MACD)
	add(ind.EMA)
	add(ind.RSI)
	add(ind.Bollinger)
	reasons = append(reasons,
		fmt.Sprintf("total score %d (%s)", agg.TotalScore, agg.Strength))
	return reasons
}
