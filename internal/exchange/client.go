// Package exchange provides market data access for a Binance USDT-M
// futures compatible API: historical klines over REST and live kline
// updates over WebSocket. It never places orders.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"signal-systemv1/internal/model"
)

const (
	defaultBaseURL = "https://fapi.binance.com"
	defaultTimeout = 10 * time.Second

	// The engine never needs more than a few hundred candles; the API caps
	// a single klines request at 1500.
	maxKlineLimit = 1500
)

// ClientConfig configures the REST client.
type ClientConfig struct {
	BaseURL string        // default: https://fapi.binance.com
	Timeout time.Duration // default: 10s
}

// Client is a read-only REST client for market data endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client with defaults filled in.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Klines fetches up to limit closed candles for a symbol and interval,
// oldest first. The response drops the still-forming last candle so every
// returned candle is final.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	// Fetch one extra so the forming candle can be dropped.
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit+1))

	var raw [][]json.RawMessage
	if err := c.get(ctx, "/fapi/v1/klines", q, &raw); err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, row := range raw {
		cd, err := parseKlineRow(symbol, interval, row)
		if err != nil {
			return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
		}
		candles = append(candles, cd)
	}

	// The last row is the open candle of the current interval.
	if len(candles) > 1 {
		candles = candles[:len(candles)-1]
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// Price fetches the latest traded price for a symbol.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.get(ctx, "/fapi/v1/ticker/price", q, &out); err != nil {
		return 0, fmt.Errorf("price %s: %w", symbol, err)
	}
	p, err := strconv.ParseFloat(out.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("price %s: parse %q: %w", symbol, out.Price, err)
	}
	return p, nil
}

// TradingSymbols returns all symbols currently open for trading.
func (c *Client) TradingSymbols(ctx context.Context) ([]string, error) {
	var out struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := c.get(ctx, "/fapi/v1/exchangeInfo", nil, &out); err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}

	symbols := make([]string, 0, len(out.Symbols))
	for _, s := range out.Symbols {
		if s.Status == "TRADING" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		// Error bodies are {"code": ..., "msg": ...}
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Msg != "" {
			return fmt.Errorf("http %d: %s (code %d)", resp.StatusCode, apiErr.Msg, apiErr.Code)
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(raw))
	}

	return json.Unmarshal(raw, out)
}

// parseKlineRow decodes one kline array:
// [openTime, open, high, low, close, volume, closeTime, ...].
// Times are millisecond integers, prices and volume quoted strings.
func parseKlineRow(symbol, interval string, row []json.RawMessage) (model.Candle, error) {
	if len(row) < 6 {
		return model.Candle{}, fmt.Errorf("kline row has %d fields, want >= 6", len(row))
	}

	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return model.Candle{}, fmt.Errorf("open time: %w", err)
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return model.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("field %d: parse %q: %w", i+1, s, err)
		}
		vals[i] = v
	}

	return model.Candle{
		Symbol:   symbol,
		Interval: interval,
		OpenTime: time.UnixMilli(openMs).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}
