package engine

import "signal-systemv1/internal/model"

// structureScores holds the scores contributed by the structure analyzers.
type structureScores struct {
	marketStructure int
	volume          int
	orderBlock      int
	pullback        int
}

// aggregate sums the five main indicator scores with the structure scores
// and classifies the result. Confluence counts only the five main
// indicators, so it is bounded by 5 in either direction; the average is
// normalized over those five as well, keeping the strength thresholds on
// the per-indicator [-3, +3] scale.
func aggregate(ind model.IndicatorAnalyses, str structureScores) model.AggregateAnalysis {
	main := []model.Verdict{ind.RSI, ind.MACD, ind.EMA, ind.Bollinger, ind.Trend.Verdict}

	var total, bull, bear int
	for _, v := range main {
		total += v.Score
		switch {
		case v.Score > 0:
			bull++
		case v.Score < 0:
			bear++
		}
	}
	total += str.marketStructure + str.volume + str.orderBlock + str.pullback

	avg := float64(total) / float64(len(main))

	var strength model.Strength
	switch abs := absFloat(avg); {
	case abs >= 2:
		strength = model.StrengthStrong
	case abs >= 1:
		strength = model.StrengthModerate
	default:
		strength = model.StrengthWeak
	}

	return model.AggregateAnalysis{
		TotalScore:        total,
		AverageScore:      avg,
		Strength:          strength,
		BullishConfluence: bull,
		BearishConfluence: bear,
		IsSideway:         ind.ADX.IsSideway,
		HasTrend:          ind.ADX.HasTrend,
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
