package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// klinesBody is a two-candle response plus a forming third candle, in the
// wire format: arrays of [openTime, o, h, l, c, v, closeTime, ...].
const klinesBody = `[
  [1700000000000, "100.0", "101.5", "99.0", "100.5", "1200.0", 1700000899999],
  [1700000900000, "100.5", "102.0", "100.0", "101.8", "900.5", 1700001799999],
  [1700001800000, "101.8", "101.9", "101.7", "101.85", "12.0", 1700002699999]
]`

func TestClient_Klines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "15m" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		// limit is requested +1 so the forming candle can be dropped
		if q.Get("limit") != "3" {
			t.Errorf("expected limit=3, got %s", q.Get("limit"))
		}
		w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	candles, err := c.Klines(context.Background(), "BTCUSDT", "15m", 2)
	if err != nil {
		t.Fatalf("Klines: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 closed candles, got %d", len(candles))
	}

	first := candles[0]
	if first.Symbol != "BTCUSDT" || first.Interval != "15m" {
		t.Errorf("market not stamped: %s %s", first.Symbol, first.Interval)
	}
	if !first.OpenTime.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Errorf("wrong open time: %v", first.OpenTime)
	}
	if first.Open != 100.0 || first.High != 101.5 || first.Low != 99.0 || first.Close != 100.5 || first.Volume != 1200.0 {
		t.Errorf("wrong OHLCV: %+v", first)
	}

	// The forming candle at 1700001800000 must be dropped.
	last := candles[len(candles)-1]
	if last.OpenTime.Equal(time.UnixMilli(1700001800000).UTC()) {
		t.Error("forming candle was not dropped")
	}
}

func TestClient_Klines_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.Klines(context.Background(), "NOPEUSDT", "15m", 10)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !containsSubstring(err.Error(), "Invalid symbol") {
		t.Errorf("error should carry API message, got: %v", err)
	}
}

func TestClient_Price(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64250.10"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	p, err := c.Price(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p != 64250.10 {
		t.Errorf("expected 64250.10, got %v", p)
	}
}

func TestClient_TradingSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
            {"symbol":"BTCUSDT","status":"TRADING"},
            {"symbol":"OLDUSDT","status":"DELIVERING"},
            {"symbol":"ETHUSDT","status":"TRADING"}
        ]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	syms, err := c.TradingSymbols(context.Background())
	if err != nil {
		t.Fatalf("TradingSymbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "BTCUSDT" || syms[1] != "ETHUSDT" {
		t.Errorf("expected [BTCUSDT ETHUSDT], got %v", syms)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
