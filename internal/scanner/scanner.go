// Package scanner drives the scan loop: every tick it fetches candle
// windows for the configured symbols, runs the signal engine on each,
// and fans results out to Redis, the SQLite journal and alerting.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"signal-systemv1/internal/engine"
	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notification"
)

// KlineSource fetches closed candles for one market, oldest first.
type KlineSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
}

// ResultSink receives every analysis result. The Redis buffered writer
// satisfies this.
type ResultSink interface {
	WriteResult(res *model.AnalysisResult) error
}

// Config holds the scan loop parameters.
type Config struct {
	Symbols      []string
	Interval     string        // candle interval, e.g. "15m"
	ScanInterval time.Duration // wall-clock time between scan cycles
	Workers      int           // concurrent symbol analyses per cycle
	KlineLimit   int           // candles fetched per symbol
}

// Scanner runs the periodic multi-symbol scan.
type Scanner struct {
	cfg      Config
	source   KlineSource
	eng      *engine.Engine
	sink     ResultSink
	journal  chan<- *model.AnalysisResult
	notifier notification.Notifier
	met      *metrics.Metrics
	health   *metrics.HealthStatus
	log      *slog.Logger
}

// New creates a scanner. sink, journal, notifier, met and health may
// each be nil to disable that output.
func New(cfg Config, source KlineSource, eng *engine.Engine, sink ResultSink,
	journal chan<- *model.AnalysisResult, notifier notification.Notifier,
	met *metrics.Metrics, health *metrics.HealthStatus, log *slog.Logger) *Scanner {

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.KlineLimit <= 0 {
		cfg.KlineLimit = 200
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Minute
	}
	return &Scanner{
		cfg:      cfg,
		source:   source,
		eng:      eng,
		sink:     sink,
		journal:  journal,
		notifier: notifier,
		met:      met,
		health:   health,
		log:      log,
	}
}

// Run scans immediately, then on every tick until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	s.log.Info("scanner started",
		slog.Int("symbols", len(s.cfg.Symbols)),
		slog.String("interval", s.cfg.Interval),
		slog.Duration("every", s.cfg.ScanInterval),
		slog.Int("workers", s.cfg.Workers))

	s.ScanOnce(ctx)

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return
		case <-ticker.C:
			s.ScanOnce(ctx)
		}
	}
}

// ScanOnce runs one full scan cycle over all symbols with a bounded
// worker pool.
func (s *Scanner) ScanOnce(ctx context.Context) {
	start := time.Now()
	if s.met != nil {
		s.met.ScansTotal.Inc()
	}

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.scanSymbol(ctx, sym)
		}(symbol)
	}
	wg.Wait()

	now := time.Now()
	if s.met != nil {
		s.met.ScanDur.Observe(now.Sub(start).Seconds())
		s.met.LastScanUnix.Set(float64(now.Unix()))
	}
	if s.health != nil {
		s.health.SetLastScanTime(now)
	}
}

// ScanSymbol analyzes a single symbol immediately, outside the ticker
// cadence. The stream wiring calls this when a candle closes.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) {
	s.scanSymbol(ctx, symbol)
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) {
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(symbol, time.Now()))
	lg := s.log.With(append([]any{slog.String("symbol", symbol)}, logger.LogWithTrace(ctx)...)...)

	fetchStart := time.Now()
	candles, err := s.source.Klines(ctx, symbol, s.cfg.Interval, s.cfg.KlineLimit)
	if s.met != nil {
		s.met.KlineFetchDur.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		if s.met != nil {
			s.met.KlineFetchErrors.Inc()
			s.met.AnalysesTotal.WithLabelValues("fetch_error").Inc()
		}
		lg.Error("kline fetch failed", slog.String("error", err.Error()))
		return
	}

	analyzeStart := time.Now()
	res, err := s.eng.Analyze(candles)
	if s.met != nil {
		s.met.AnalyzeDur.Observe(time.Since(analyzeStart).Seconds())
	}
	if err != nil {
		if model.IsInsufficientData(err) {
			if s.met != nil {
				s.met.AnalysesTotal.WithLabelValues("insufficient_data").Inc()
			}
			lg.Warn("not enough candles", slog.Int("got", len(candles)))
			return
		}
		if s.met != nil {
			s.met.AnalysesTotal.WithLabelValues("error").Inc()
		}
		lg.Error("analysis failed", slog.String("error", err.Error()))
		return
	}

	if s.met != nil {
		s.met.AnalysesTotal.WithLabelValues("ok").Inc()
		s.met.SignalsTotal.WithLabelValues(string(res.Signal.Action)).Inc()
	}
	s.publish(ctx, lg, res)
}

// publish fans one result out to every configured output.
func (s *Scanner) publish(ctx context.Context, lg *slog.Logger, res *model.AnalysisResult) {
	if s.sink != nil {
		writeStart := time.Now()
		if err := s.sink.WriteResult(res); err != nil {
			lg.Error("redis write failed", slog.String("error", err.Error()))
		}
		if s.met != nil {
			s.met.RedisWriteDur.Observe(time.Since(writeStart).Seconds())
		}
	}

	if s.journal != nil {
		select {
		case s.journal <- res:
		case <-ctx.Done():
			return
		}
	}

	if res.Actionable() {
		lg.Info("signal",
			slog.String("action", string(res.Signal.Action)),
			slog.String("strength", string(res.Signal.Strength)),
			slog.Float64("entry", res.Signal.Entry),
			slog.Float64("stopLoss", res.Signal.StopLoss),
			slog.Float64("takeProfit", res.Signal.TakeProfit),
			slog.Int("leverage", res.Signal.Leverage),
			slog.Float64("confidence", res.Signal.Confidence))

		if s.notifier != nil {
			if err := s.notifier.Send(ctx, notification.FromSignal(res)); err != nil {
				lg.Error("notify failed", slog.String("error", err.Error()))
			}
		}
	}
}
