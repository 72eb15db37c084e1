package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"signal-systemv1/internal/model"
)

func sampleResult(symbol string, action model.Action, ts time.Time) *model.AnalysisResult {
	return &model.AnalysisResult{
		Timestamp:    ts,
		Symbol:       symbol,
		Interval:     "15m",
		CurrentPrice: 100,
		Signal: model.Signal{
			Action:       action,
			Strength:     model.StrengthModerate,
			Entry:        100,
			StopLoss:     98.5,
			TakeProfit:   102.25,
			Confidence:   72,
			Leverage:     10,
			TotalScore:   7,
			AverageScore: 1.4,
			Reasons:      []string{"total score 7 (MODERATE)"},
		},
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := w.InsertResult(sampleResult("BTCUSDT", model.ActionLong, base)); err != nil {
		t.Fatalf("insert long: %v", err)
	}
	if err := w.InsertResult(sampleResult("BTCUSDT", model.ActionWait, base.Add(15*time.Minute))); err != nil {
		t.Fatalf("insert wait: %v", err)
	}
	if err := w.InsertResult(sampleResult("ETHUSDT", model.ActionShort, base)); err != nil {
		t.Fatalf("insert other market: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	// All rows for the market, newest first.
	recs, err := r.RecentSignals("BTCUSDT", "15m", "", 10)
	if err != nil {
		t.Fatalf("RecentSignals: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recs))
	}
	if recs[0].Action != model.ActionWait || recs[1].Action != model.ActionLong {
		t.Errorf("wrong order: %s, %s", recs[0].Action, recs[1].Action)
	}

	// Action filter excludes the WAIT.
	recs, err = r.RecentSignals("BTCUSDT", "15m", model.ActionLong, 10)
	if err != nil {
		t.Fatalf("RecentSignals filtered: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 LONG row, got %d", len(recs))
	}
	got := recs[0]
	if got.Entry != 100 || got.StopLoss != 98.5 || got.TakeProfit != 102.25 || got.Leverage != 10 {
		t.Errorf("trade levels lost: %+v", got)
	}
	if got.TS != base.Unix() {
		t.Errorf("ts = %d, want %d", got.TS, base.Unix())
	}

	// The payload column restores the full result.
	full, err := r.FullResult(got.ID)
	if err != nil {
		t.Fatalf("FullResult: %v", err)
	}
	if full == nil || full.Symbol != "BTCUSDT" || len(full.Signal.Reasons) != 1 {
		t.Errorf("payload did not round-trip: %+v", full)
	}
}

func TestReader_FullResultMissingRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	res, err := r.FullResult(9999)
	if err != nil {
		t.Fatalf("FullResult: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil for missing row, got %+v", res)
	}
}
