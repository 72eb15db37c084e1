package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"signal-systemv1/internal/model"
)

func TestFromSignal_Long(t *testing.T) {
	res := &model.AnalysisResult{
		Symbol:       "BTCUSDT",
		Interval:     "15m",
		CurrentPrice: 100,
		Signal: model.Signal{
			Action:        model.ActionLong,
			Strength:      model.StrengthStrong,
			Confidence:    84,
			Entry:         100,
			StopLoss:      96.709,
			TakeProfit:    109.78,
			RiskPercent:   3.29,
			RewardPercent: 9.78,
			RiskReward:    2.97,
			Leverage:      7,
			LeverageRisk:  model.LeverageRiskLow,
			TotalScore:    13,
			AverageScore:  2.6,
			Reasons:       []string{"strong uptrend: price above stacked EMAs"},
		},
	}

	a := FromSignal(res)
	if a.Title != "LONG BTCUSDT 15m" {
		t.Errorf("title: %q", a.Title)
	}
	if a.Level != AlertCritical {
		t.Errorf("strong signal should be CRITICAL, got %s", a.Level)
	}
	for _, want := range []string{"Entry: 100", "Stop: 96.709", "Target: 109.78", "Leverage: 7x", "strong uptrend"} {
		if !strings.Contains(a.Message, want) {
			t.Errorf("message missing %q:\n%s", want, a.Message)
		}
	}
}

func TestFromSignal_Wait(t *testing.T) {
	res := &model.AnalysisResult{
		Symbol:   "ETHUSDT",
		Interval: "1h",
		Signal: model.Signal{
			Action:  model.ActionWait,
			Reasons: []string{"sideways market: ADX 12.0 below 20.0"},
		},
	}

	a := FromSignal(res)
	if a.Level != AlertInfo {
		t.Errorf("WAIT should be INFO, got %s", a.Level)
	}
	if strings.Contains(a.Message, "Entry:") {
		t.Error("WAIT alert should not carry trade levels")
	}
	if !strings.Contains(a.Message, "sideways market") {
		t.Errorf("message missing rejection reason:\n%s", a.Message)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("Stop: 96.7 (-3.3%)")
	want := `Stop: 96\.7 \(\-3\.3%\)`
	if got != want {
		t.Errorf("escapeMarkdown = %q, want %q", got, want)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "LONG BTCUSDT 15m", Message: "Entry: 100"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if received["level"] != "WARNING" || received["title"] != "LONG BTCUSDT 15m" {
		t.Errorf("payload: %v", received)
	}
	if received["ts"] == "" {
		t.Error("payload missing ts")
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Title: "x"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Send(ctx context.Context, alert Alert) error {
	s.calls++
	return s.err
}

func TestFanout_DeliversToAllDespiteFailure(t *testing.T) {
	bad := &stubNotifier{err: errors.New("boom")}
	good := &stubNotifier{}

	f := NewFanout(bad, good)
	err := f.Send(context.Background(), Alert{Title: "x"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Errorf("expected both backends called, got %d/%d", bad.calls, good.calls)
	}
}
