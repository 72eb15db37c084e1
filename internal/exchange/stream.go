package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signal-systemv1/internal/model"
	"signal-systemv1/internal/ringbuf"
)

const (
	defaultWSURL      = "wss://fstream.binance.com/ws"
	heartbeatInterval = 10 * time.Second
	writeWait         = 5 * time.Second
	readWait          = 90 * time.Second

	// Retry strategies for reconnect backoff.
	RetrySimple      = 0
	RetryExponential = 1
)

// StreamConfig configures the kline streamer.
type StreamConfig struct {
	URL             string        // default: wss://fstream.binance.com/ws
	MaxRetryAttempt int           // consecutive reconnect attempts before giving up; default 10
	RetryStrategy   int           // RetrySimple or RetryExponential
	RetryDelay      time.Duration // base delay between attempts; default 2s
	RetryMultiplier int           // exponential backoff multiplier; default 2
	BufferSize      int           // ring buffer capacity; default 1024

	// OnReconnect fires on every successful reconnect after a drop.
	OnReconnect func()
	// OnDrop fires when a candle is discarded because the buffer is full.
	OnDrop func()
}

// KlineStreamer maintains a WebSocket subscription to kline streams and
// emits closed candles on Out. Reconnects transparently, resubscribing
// to everything subscribed before the drop.
type KlineStreamer struct {
	cfg    StreamConfig
	dialer *websocket.Dialer
	log    *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	streams map[string]struct{} // e.g. "btcusdt@kline_15m"
	nextID  int

	ring *ringbuf.Ring
	out  chan model.Candle
}

// NewKlineStreamer creates a streamer with defaults filled in. Call
// Subscribe before Run, or any time after.
func NewKlineStreamer(cfg StreamConfig, log *slog.Logger) *KlineStreamer {
	if cfg.URL == "" {
		cfg.URL = defaultWSURL
	}
	if cfg.MaxRetryAttempt == 0 {
		cfg.MaxRetryAttempt = 10
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.RetryMultiplier == 0 {
		cfg.RetryMultiplier = 2
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1024
	}
	return &KlineStreamer{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		log:     log,
		streams: make(map[string]struct{}),
		nextID:  1,
		ring:    ringbuf.New(cfg.BufferSize),
		out:     make(chan model.Candle, 64),
	}
}

// Out returns the channel of closed candles.
func (s *KlineStreamer) Out() <-chan model.Candle { return s.out }

// Overflow returns how many candles were dropped due to a full buffer.
func (s *KlineStreamer) Overflow() uint64 { return s.ring.Overflow() }

// Subscribe adds kline streams for the given symbols and interval. If the
// connection is live the subscribe request is sent immediately; otherwise
// it is sent on the next (re)connect.
func (s *KlineStreamer) Subscribe(symbols []string, interval string) error {
	names := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		names = append(names, streamName(sym, interval))
	}

	s.mu.Lock()
	for _, n := range names {
		s.streams[n] = struct{}{}
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.send(conn, "SUBSCRIBE", names)
}

// Unsubscribe removes kline streams for the given symbols and interval.
func (s *KlineStreamer) Unsubscribe(symbols []string, interval string) error {
	names := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		names = append(names, streamName(sym, interval))
	}

	s.mu.Lock()
	for _, n := range names {
		delete(s.streams, n)
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.send(conn, "UNSUBSCRIBE", names)
}

// Run connects and processes the stream until ctx is cancelled or the
// retry budget is exhausted. Blocks; run it in its own goroutine.
func (s *KlineStreamer) Run(ctx context.Context) error {
	go s.dispatch(ctx)

	attempt := 0
	delay := s.cfg.RetryDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.connect(ctx)
		if err == nil {
			// Session established and later dropped; reset backoff.
			attempt = 0
			delay = s.cfg.RetryDelay
			if s.cfg.OnReconnect != nil {
				s.cfg.OnReconnect()
			}
			continue
		}

		attempt++
		if attempt > s.cfg.MaxRetryAttempt {
			return fmt.Errorf("stream: giving up after %d attempts: %w", attempt-1, err)
		}
		s.log.Warn("stream reconnect",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if s.cfg.RetryStrategy == RetryExponential {
			delay *= time.Duration(s.cfg.RetryMultiplier)
		}
	}
}

// connect dials, resubscribes and reads until the connection fails.
// Returns nil when at least one message round-trip succeeded, so the
// caller resets its backoff.
func (s *KlineStreamer) connect(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: status %s: %w", s.cfg.URL, resp.Status, err)
		}
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	s.mu.Lock()
	s.conn = conn
	names := make([]string, 0, len(s.streams))
	for n := range s.streams {
		names = append(names, n)
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	if len(names) > 0 {
		if err := s.send(conn, "SUBSCRIBE", names); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
	}
	s.log.Info("stream connected", slog.Int("streams", len(names)))

	// Heartbeat keeps intermediaries from idling out the connection.
	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
		}
	}()

	gotFrame := false
	for {
		if err := ctx.Err(); err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return err
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if gotFrame {
				// Healthy session that dropped; reconnect with fresh backoff.
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		gotFrame = true
		conn.SetReadDeadline(time.Now().Add(readWait))
		s.handleMessage(raw)
	}
}

// send writes a SUBSCRIBE/UNSUBSCRIBE request frame.
func (s *KlineStreamer) send(conn *websocket.Conn, method string, params []string) error {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	req := map[string]interface{}{
		"method": method,
		"params": params,
		"id":     id,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(req)
}

// klineEvent mirrors the kline stream payload. Prices arrive as quoted
// strings; times as millisecond integers.
type klineEvent struct {
	EventType string `json:"e"`
	EventMs   int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		StartMs  int64  `json:"t"`
		EndMs    int64  `json:"T"`
		Symbol   string `json:"s"`
		Interval string `json:"i"`
		Open     string `json:"o"`
		Close    string `json:"c"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Volume   string `json:"v"`
		IsClosed bool   `json:"x"`
	} `json:"k"`
}

func (s *KlineStreamer) handleMessage(raw []byte) {
	var ev klineEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.log.Debug("stream: unparseable frame", slog.String("error", err.Error()))
		return
	}
	if ev.EventType != "kline" || !ev.Kline.IsClosed {
		// Subscription acks, partial klines and other events are skipped.
		return
	}

	c, err := candleFromEvent(ev)
	if err != nil {
		s.log.Warn("stream: bad kline", slog.String("symbol", ev.Symbol), slog.String("error", err.Error()))
		return
	}
	if !s.ring.Push(c) {
		if s.cfg.OnDrop != nil {
			s.cfg.OnDrop()
		}
		s.log.Warn("stream: buffer full, candle dropped", slog.String("symbol", c.Symbol))
	}
}

// dispatch drains the ring into the out channel.
func (s *KlineStreamer) dispatch(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(s.out)
			return
		case <-ticker.C:
			for {
				c, ok := s.ring.Pop()
				if !ok {
					break
				}
				select {
				case s.out <- c:
				case <-ctx.Done():
					close(s.out)
					return
				}
			}
		}
	}
}

func candleFromEvent(ev klineEvent) (model.Candle, error) {
	vals := make([]float64, 5)
	for i, raw := range []string{ev.Kline.Open, ev.Kline.High, ev.Kline.Low, ev.Kline.Close, ev.Kline.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("parse %q: %w", raw, err)
		}
		vals[i] = v
	}
	return model.Candle{
		Symbol:   ev.Kline.Symbol,
		Interval: ev.Kline.Interval,
		OpenTime: time.UnixMilli(ev.Kline.StartMs).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

func streamName(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}
