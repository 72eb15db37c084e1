package engine

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"signal-systemv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got %.6f, want %.6f (eps %.6f)", got, want, eps)
	}
}

func candleAt(i int, open, high, low, close float64) model.Candle {
	return model.Candle{
		Symbol:   "BTCUSDT",
		Interval: "1h",
		OpenTime: time.Unix(int64(i)*3600, 0).UTC(),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    close,
		Volume:   1000,
	}
}

func risingMarket(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = candleAt(i, c-1, c+0.5, c-1.5, c)
	}
	return out
}

func flatMarket(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = candleAt(i, 100, 100, 100, 100)
	}
	return out
}

// ────────────────────────────────────────────────────────────
// Analyze
// ────────────────────────────────────────────────────────────

func TestAnalyze_RejectsShortWindow(t *testing.T) {
	eng := New(DefaultConfig())
	res, err := eng.Analyze(risingMarket(49))
	if err == nil {
		t.Fatal("expected error for 49 candles")
	}
	if !model.IsInsufficientData(err) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on error")
	}
}

func TestAnalyze_AcceptsExactMinimum(t *testing.T) {
	eng := New(DefaultConfig())
	res, err := eng.Analyze(flatMarket(DefaultConfig().MinCandles))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
}

func TestAnalyze_RisingMarketIsStrongUptrend(t *testing.T) {
	// A steady one-point-per-candle advance keeps price above the full EMA
	// stack and ADX well into trending territory. Whatever the final
	// recommendation, it must never be a short.
	eng := New(DefaultConfig())
	res, err := eng.Analyze(risingMarket(80))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IndicatorAnalysis.Trend.Direction != model.TrendStrongUp {
		t.Fatalf("direction = %s, want %s", res.IndicatorAnalysis.Trend.Direction, model.TrendStrongUp)
	}
	if !res.Analysis.HasTrend {
		t.Fatalf("HasTrend = false, ADX %.2f", res.IndicatorAnalysis.ADX.Value)
	}
	if res.Signal.Action == model.ActionShort {
		t.Fatal("rising market produced a SHORT signal")
	}
}

func TestAnalyze_FlatMarketWaits(t *testing.T) {
	eng := New(DefaultConfig())
	res, err := eng.Analyze(flatMarket(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Signal.Action != model.ActionWait {
		t.Fatalf("action = %s, want WAIT", res.Signal.Action)
	}
	if !res.Analysis.IsSideway {
		t.Fatal("expected sideways classification for identical candles")
	}
	if len(res.Signal.Reasons) == 0 {
		t.Fatal("WAIT signal must carry rejection reasons")
	}
	found := false
	for _, r := range res.Signal.Reasons {
		if strings.Contains(r, "sideways") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no sideways rejection among %v", res.Signal.Reasons)
	}
	if res.Signal.StopLoss != 0 || res.Signal.TakeProfit != 0 || res.Signal.Leverage != 0 {
		t.Fatal("WAIT signal must not carry stop, target or leverage")
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	eng := New(DefaultConfig())
	a, err := eng.Analyze(risingMarket(80))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := eng.Analyze(risingMarket(80))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a.Signal, b.Signal) {
		t.Fatalf("signals differ:\n%+v\n%+v", a.Signal, b.Signal)
	}
	if !reflect.DeepEqual(a.Analysis, b.Analysis) {
		t.Fatalf("analyses differ:\n%+v\n%+v", a.Analysis, b.Analysis)
	}
}

// ────────────────────────────────────────────────────────────
// Scorers
// ────────────────────────────────────────────────────────────

func TestScoreRSI_Zones(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name      string
		prev, cur float64
		want      int
	}{
		{"oversold turning up", 25, 28, 3},
		{"oversold still falling", 28, 25, 2},
		{"overbought turning down", 78, 74, -3},
		{"overbought still rising", 72, 75, -2},
		{"below midline", 36, 35, 1},
		{"above midline", 64, 65, -1},
		{"neutral", 50, 50, 0},
	}
	for _, tc := range cases {
		v := scoreRSI(model.Reading{Current: tc.cur, Previous: tc.prev, Valid: true}, cfg)
		if v.Score != tc.want {
			t.Errorf("%s: score = %d, want %d", tc.name, v.Score, tc.want)
		}
	}
	if v := scoreRSI(model.Reading{}, cfg); v.Score != 0 {
		t.Errorf("invalid reading scored %d", v.Score)
	}
}

func TestScoreMACD_HistogramFlip(t *testing.T) {
	// A sign flip scores the maximum regardless of magnitude.
	cases := []struct {
		name      string
		prev, cur float64
		want      int
	}{
		{"flip positive", -0.5, 0.2, 3},
		{"flip positive from zero", 0, 0.01, 3},
		{"flip negative", 0.3, -0.1, -3},
		{"flip negative from zero", 0, -0.01, -3},
		{"bullish accelerating", 0.1, 0.4, 2},
		{"bullish fading", 0.4, 0.1, 1},
		{"bearish accelerating", -0.1, -0.4, -2},
		{"bearish fading", -0.4, -0.1, -1},
		{"flat", 0, 0, 0},
	}
	for _, tc := range cases {
		v := scoreMACD(model.MACDSnapshot{Histogram: tc.cur, PrevHistogram: tc.prev, Valid: true})
		if v.Score != tc.want {
			t.Errorf("%s: score = %d, want %d", tc.name, v.Score, tc.want)
		}
	}
	if v := scoreMACD(model.MACDSnapshot{}); v.Score != 0 {
		t.Errorf("invalid snapshot scored %d", v.Score)
	}
}

func TestScoreEMACross(t *testing.T) {
	golden := model.EMASnapshot{Fast: 101, Slow: 100, PrevFast: 99, PrevSlow: 100, Valid: true}
	if v := scoreEMACross(golden, 102); v.Score != 3 {
		t.Fatalf("golden cross score = %d, want 3", v.Score)
	}
	death := model.EMASnapshot{Fast: 99, Slow: 100, PrevFast: 101, PrevSlow: 100, Valid: true}
	if v := scoreEMACross(death, 98); v.Score != -3 {
		t.Fatalf("death cross score = %d, want -3", v.Score)
	}
	stacked := model.EMASnapshot{Fast: 101, Slow: 100, PrevFast: 101, PrevSlow: 100, Valid: true}
	if v := scoreEMACross(stacked, 102); v.Score != 2 {
		t.Fatalf("price above bullish stack score = %d, want 2", v.Score)
	}
	if v := scoreEMACross(stacked, 100.5); v.Score != 1 {
		t.Fatalf("price inside bullish stack score = %d, want 1", v.Score)
	}
}

func TestScoreTrend_Stacking(t *testing.T) {
	full := model.EMASnapshot{Fast: 103, Slow: 102, Trend: 101, Valid: true}
	tv := scoreTrend(full, 104)
	if tv.Direction != model.TrendStrongUp || tv.Score != 3 {
		t.Fatalf("got %s/%d, want STRONG_UPTREND/3", tv.Direction, tv.Score)
	}
	tv = scoreTrend(full, 102.5) // price inside the stack
	if tv.Direction != model.TrendUp || tv.Score != 2 {
		t.Fatalf("got %s/%d, want UPTREND/2", tv.Direction, tv.Score)
	}
	down := model.EMASnapshot{Fast: 101, Slow: 102, Trend: 103, Valid: true}
	tv = scoreTrend(down, 100)
	if tv.Direction != model.TrendStrongDown || tv.Score != -3 {
		t.Fatalf("got %s/%d, want STRONG_DOWNTREND/-3", tv.Direction, tv.Score)
	}
	flat := model.EMASnapshot{Fast: 100, Slow: 100, Trend: 100, Valid: true}
	tv = scoreTrend(flat, 100)
	if tv.Direction != model.TrendSideways || tv.Score != 0 {
		t.Fatalf("got %s/%d, want SIDEWAYS/0", tv.Direction, tv.Score)
	}
}

func TestScoreBollinger_Bands(t *testing.T) {
	b := model.BollingerSnapshot{Upper: 110, Middle: 100, Lower: 90, Valid: true}
	if v := scoreBollinger(b, 89); v.Score != 2 {
		t.Fatalf("lower touch score = %d, want 2", v.Score)
	}
	if v := scoreBollinger(b, 111); v.Score != -2 {
		t.Fatalf("upper touch score = %d, want -2", v.Score)
	}
	if v := scoreBollinger(b, 91); v.Score != 1 { // inside the outer 20% of the lower half-band
		t.Fatalf("lower proximity score = %d, want 1", v.Score)
	}
	if v := scoreBollinger(b, 100); v.Score != 0 {
		t.Fatalf("mid-band score = %d, want 0", v.Score)
	}
	collapsed := model.BollingerSnapshot{Upper: 100, Middle: 100, Lower: 100, Valid: true}
	if v := scoreBollinger(collapsed, 100); v.Score != 0 {
		t.Fatalf("collapsed bands score = %d, want 0", v.Score)
	}
}

func TestAnalyzeADX_Gates(t *testing.T) {
	cfg := DefaultConfig()
	v := analyzeADX(model.ADXSnapshot{ADX: 15, Valid: true}, cfg)
	if !v.IsSideway || v.HasTrend {
		t.Fatalf("ADX 15: IsSideway=%v HasTrend=%v", v.IsSideway, v.HasTrend)
	}
	v = analyzeADX(model.ADXSnapshot{ADX: 22, Valid: true}, cfg)
	if v.IsSideway || v.HasTrend {
		t.Fatalf("ADX 22: IsSideway=%v HasTrend=%v", v.IsSideway, v.HasTrend)
	}
	v = analyzeADX(model.ADXSnapshot{ADX: 30, Valid: true}, cfg)
	if v.IsSideway || !v.HasTrend {
		t.Fatalf("ADX 30: IsSideway=%v HasTrend=%v", v.IsSideway, v.HasTrend)
	}
}

// ────────────────────────────────────────────────────────────
// Aggregation
// ────────────────────────────────────────────────────────────

func TestAggregate_SumsAndConfluence(t *testing.T) {
	bull := model.Verdict{Signal: model.BiasBullish, Score: 2}
	ind := model.IndicatorAnalyses{
		RSI:       bull,
		MACD:      bull,
		EMA:       bull,
		Bollinger: bull,
		Trend:     model.TrendVerdict{Verdict: bull, Direction: model.TrendUp},
	}
	agg := aggregate(ind, structureScores{marketStructure: 2, volume: 1, orderBlock: 0, pullback: 0})
	if agg.TotalScore != 13 {
		t.Fatalf("total = %d, want 13", agg.TotalScore)
	}
	assertClose(t, agg.AverageScore, 2.6, 1e-9)
	if agg.Strength != model.StrengthStrong {
		t.Fatalf("strength = %s, want STRONG", agg.Strength)
	}
	if agg.BullishConfluence != 5 || agg.BearishConfluence != 0 {
		t.Fatalf("confluence = %d/%d, want 5/0", agg.BullishConfluence, agg.BearishConfluence)
	}
}

func TestAggregate_ConfluenceIgnoresStructure(t *testing.T) {
	// Structure scores move the total but never the confluence counts,
	// which stay bounded by the five main indicators.
	ind := model.IndicatorAnalyses{
		RSI: model.Verdict{Signal: model.BiasBullish, Score: 1},
	}
	agg := aggregate(ind, structureScores{marketStructure: 2, volume: 2, orderBlock: 2, pullback: 2})
	if agg.BullishConfluence != 1 {
		t.Fatalf("confluence = %d, want 1", agg.BullishConfluence)
	}
	if agg.TotalScore != 9 {
		t.Fatalf("total = %d, want 9", agg.TotalScore)
	}
}

func TestAggregate_MixedStrength(t *testing.T) {
	ind := model.IndicatorAnalyses{
		RSI:  model.Verdict{Signal: model.BiasBullish, Score: 3},
		MACD: model.Verdict{Signal: model.BiasBearish, Score: -1},
	}
	agg := aggregate(ind, structureScores{})
	if agg.TotalScore != 2 {
		t.Fatalf("total = %d, want 2", agg.TotalScore)
	}
	if agg.Strength != model.StrengthWeak {
		t.Fatalf("strength = %s, want WEAK", agg.Strength)
	}
	if agg.BullishConfluence != 1 || agg.BearishConfluence != 1 {
		t.Fatalf("confluence = %d/%d, want 1/1", agg.BullishConfluence, agg.BearishConfluence)
	}
}

// ────────────────────────────────────────────────────────────
// Composition
// ────────────────────────────────────────────────────────────

func passingAgg(total, confluence int) model.AggregateAnalysis {
	agg := model.AggregateAnalysis{
		TotalScore:   total,
		AverageScore: float64(total) / 5,
		Strength:     model.StrengthModerate,
	}
	if total > 0 {
		agg.BullishConfluence = confluence
	} else {
		agg.BearishConfluence = confluence
	}
	return agg
}

func TestCompose_LongTradePlan(t *testing.T) {
	cfg := DefaultConfig()
	sr := model.SupportResistance{NearestSupport: 97, NearestResistance: 110}
	sig := compose(100, passingAgg(8, 4), model.IndicatorAnalyses{}, sr, cfg)

	if sig.Action != model.ActionLong {
		t.Fatalf("action = %s, want LONG, reasons %v", sig.Action, sig.Reasons)
	}
	// Stop anchors just under the support, target just under the
	// resistance: 97·0.997 and 110·0.998.
	assertClose(t, sig.StopLoss, 96.709, 1e-9)
	assertClose(t, sig.TakeProfit, 109.78, 1e-9)
	if !(sig.StopLoss < sig.Entry && sig.Entry < sig.TakeProfit) {
		t.Fatalf("ordering violated: sl=%.3f entry=%.3f tp=%.3f", sig.StopLoss, sig.Entry, sig.TakeProfit)
	}
	assertClose(t, sig.RiskPercent, 3.291, 1e-9)
	assertClose(t, sig.RewardPercent, 9.78, 1e-9)
	assertClose(t, sig.RiskReward, 9.78/3.291, 1e-9)
	// Conviction tier asks for 12x but the risk cap 25/3.291 allows 7.
	if sig.Leverage != 7 {
		t.Fatalf("leverage = %d, want 7", sig.Leverage)
	}
	if sig.LeverageRisk != model.LeverageRiskLow {
		t.Fatalf("leverage risk = %s, want LOW", sig.LeverageRisk)
	}
	if len(sig.Reasons) == 0 {
		t.Fatal("actionable signal must carry reasons")
	}
}

func TestCompose_LongWidensTightStop(t *testing.T) {
	// Support almost at price: the raw stop would sit 0.4% away, below the
	// 1.5% minimum, so it is widened and the target falls back to the
	// risk-multiple rule.
	cfg := DefaultConfig()
	sr := model.SupportResistance{NearestSupport: 99.9, NearestResistance: 100.2}
	sig := compose(100, passingAgg(10, 5), model.IndicatorAnalyses{}, sr, cfg)

	if sig.Action != model.ActionLong {
		t.Fatalf("action = %s, want LONG, reasons %v", sig.Action, sig.Reasons)
	}
	assertClose(t, sig.StopLoss, 98.5, 1e-9)
	assertClose(t, sig.TakeProfit, 102.25, 1e-9)
	assertClose(t, sig.RiskReward, 1.5, 1e-9)
	// Tier 15x, risk cap 25/1.5 = 16: tier wins.
	if sig.Leverage != 15 {
		t.Fatalf("leverage = %d, want 15", sig.Leverage)
	}
}

func TestCompose_ShortTradePlan(t *testing.T) {
	cfg := DefaultConfig()
	sr := model.SupportResistance{NearestSupport: 90, NearestResistance: 103}
	sig := compose(100, passingAgg(-8, 4), model.IndicatorAnalyses{}, sr, cfg)

	if sig.Action != model.ActionShort {
		t.Fatalf("action = %s, want SHORT, reasons %v", sig.Action, sig.Reasons)
	}
	assertClose(t, sig.StopLoss, 103.309, 1e-9)
	assertClose(t, sig.TakeProfit, 90.18, 1e-9)
	if !(sig.TakeProfit < sig.Entry && sig.Entry < sig.StopLoss) {
		t.Fatalf("ordering violated: tp=%.3f entry=%.3f sl=%.3f", sig.TakeProfit, sig.Entry, sig.StopLoss)
	}
	if sig.Leverage < cfg.MinLeverage || sig.Leverage > cfg.MaxLeverage {
		t.Fatalf("leverage %d outside [%d, %d]", sig.Leverage, cfg.MinLeverage, cfg.MaxLeverage)
	}
}

func TestCompose_RejectsBelowMinimumScore(t *testing.T) {
	cfg := DefaultConfig()
	sr := model.SupportResistance{NearestSupport: 97, NearestResistance: 110}
	sig := compose(100, passingAgg(2, 3), model.IndicatorAnalyses{}, sr, cfg)
	if sig.Action != model.ActionWait {
		t.Fatalf("action = %s, want WAIT", sig.Action)
	}
	if !containsSubstring(sig.Reasons, "score") {
		t.Fatalf("no score rejection among %v", sig.Reasons)
	}
}

func TestCompose_RejectsBelowMinimumConfluence(t *testing.T) {
	cfg := DefaultConfig()
	sr := model.SupportResistance{NearestSupport: 97, NearestResistance: 110}
	sig := compose(100, passingAgg(6, 2), model.IndicatorAnalyses{}, sr, cfg)
	if sig.Action != model.ActionWait {
		t.Fatalf("action = %s, want WAIT", sig.Action)
	}
	if !containsSubstring(sig.Reasons, "confluence") {
		t.Fatalf("no confluence rejection among %v", sig.Reasons)
	}
}

func TestCompose_CollectsEveryRejection(t *testing.T) {
	// Gates keep evaluating after the first failure so a WAIT explains
	// everything wrong at once.
	cfg := DefaultConfig()
	agg := passingAgg(1, 1)
	agg.IsSideway = true
	sig := compose(100, agg, model.IndicatorAnalyses{}, model.SupportResistance{NearestSupport: 97, NearestResistance: 110}, cfg)
	if sig.Action != model.ActionWait {
		t.Fatalf("action = %s, want WAIT", sig.Action)
	}
	if len(sig.Reasons) < 3 {
		t.Fatalf("want sideways+score+confluence rejections, got %v", sig.Reasons)
	}
}

func TestCompose_RejectsMissingSupport(t *testing.T) {
	cfg := DefaultConfig()
	sr := model.SupportResistance{NearestSupport: 0, NearestResistance: 110}
	sig := compose(100, passingAgg(8, 4), model.IndicatorAnalyses{}, sr, cfg)
	if sig.Action != model.ActionWait {
		t.Fatalf("action = %s, want WAIT", sig.Action)
	}
	if !containsSubstring(sig.Reasons, "support") {
		t.Fatalf("no support rejection among %v", sig.Reasons)
	}
}

func TestDeriveLeverage_AlwaysWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	for score := 0; score <= 23; score++ {
		for conf := 0; conf <= 5; conf++ {
			for _, risk := range []float64{0.5, 1.5, 3, 6, 12} {
				lev := deriveLeverage(score, conf, risk, cfg)
				if lev < cfg.MinLeverage || lev > cfg.MaxLeverage {
					t.Fatalf("score=%d conf=%d risk=%.1f: leverage %d outside [%d, %d]",
						score, conf, risk, lev, cfg.MinLeverage, cfg.MaxLeverage)
				}
			}
		}
	}
}

func TestClassifyLeverageRisk(t *testing.T) {
	if r := classifyLeverageRisk(1.5, 10); r != model.LeverageRiskLow {
		t.Fatalf("15%% effective = %s, want LOW", r)
	}
	if r := classifyLeverageRisk(2, 14); r != model.LeverageRiskModerate {
		t.Fatalf("28%% effective = %s, want MODERATE", r)
	}
	if r := classifyLeverageRisk(3, 15); r != model.LeverageRiskHigh {
		t.Fatalf("45%% effective = %s, want HIGH", r)
	}
}

func TestConfidence_Capped(t *testing.T) {
	if c := confidence5(23, 5); c != 95 {
		t.Fatalf("confidence = %.1f, want capped 95", c)
	}
	assertClose(t, confidence5(8, 4), 84, 1e-9)
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
