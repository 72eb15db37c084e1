package notification

import (
	"fmt"
	"strings"

	"signal-systemv1/internal/model"
)

// FromSignal formats an actionable analysis result as an alert. The
// caller decides whether to send it; WAIT results format as INFO with
// only the rejection reasons.
func FromSignal(res *model.AnalysisResult) Alert {
	sig := res.Signal

	title := fmt.Sprintf("%s %s %s", sig.Action, res.Symbol, res.Interval)

	var b strings.Builder
	fmt.Fprintf(&b, "Price: %.4f\n", res.CurrentPrice)

	if sig.Action == model.ActionLong || sig.Action == model.ActionShort {
		fmt.Fprintf(&b, "Entry: %.4f\n", sig.Entry)
		fmt.Fprintf(&b, "Stop: %.4f (-%.2f%%)\n", sig.StopLoss, sig.RiskPercent)
		fmt.Fprintf(&b, "Target: %.4f (+%.2f%%)\n", sig.TakeProfit, sig.RewardPercent)
		fmt.Fprintf(&b, "R/R: %.2f  Leverage: %dx (%s)\n", sig.RiskReward, sig.Leverage, sig.LeverageRisk)
		fmt.Fprintf(&b, "Confidence: %.0f%%  Strength: %s\n", sig.Confidence, sig.Strength)
	}
	fmt.Fprintf(&b, "Score: %d (avg %.2f)\n", sig.TotalScore, sig.AverageScore)

	if len(sig.Reasons) > 0 {
		b.WriteString("\n")
		for _, r := range sig.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	level := AlertInfo
	if sig.Action != model.ActionWait {
		level = AlertWarning
		if sig.Strength == model.StrengthStrong {
			level = AlertCritical
		}
	}

	return Alert{
		Level:   level,
		Title:   title,
		Message: strings.TrimRight(b.String(), "\n"),
	}
}
