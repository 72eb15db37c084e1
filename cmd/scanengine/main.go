package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/engine"
	"signal-systemv1/internal/exchange"
	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notification"
	"signal-systemv1/internal/scanner"
	redisstore "signal-systemv1/internal/store/redis"
	sqlitestore "signal-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// ---- Load config from env ----
	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[scanengine] SYMBOLS is empty")
	}

	lg := logger.Init("scanengine", slog.LevelInfo)
	lg.Info("starting",
		slog.Any("symbols", symbols),
		slog.String("interval", cfg.Interval),
		slog.String("preset", cfg.EnginePreset))

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus(symbols, cfg.Interval)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite signal journal (off hot path) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[scanengine] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	health.CheckSQLite(ctx, sqlWriter.DB())

	journalCh := make(chan *model.AnalysisResult, 1000)
	go sqlWriter.Run(ctx, journalCh)

	// ---- Redis publisher behind a circuit breaker ----
	var sink scanner.ResultSink
	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		lg.Warn("redis unavailable, continuing without it", slog.String("error", err.Error()))
	} else {
		defer redisWriter.Close()
		health.CheckRedis(ctx, redisWriter.Client())

		cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
		cb.OnStateChange = func(from, to redisstore.State) {
			prom.RedisCircuitBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.RedisCircuitBreakerTrips.Inc()
			}
			lg.Warn("redis circuit breaker", slog.String("from", from.String()), slog.String("to", to.String()))
		}
		buffered := redisstore.NewBufferedWriter(ctx, redisWriter, cb, 10000)
		buffered.OnBuffer = func() { prom.RedisBufferedWrites.Inc() }
		buffered.OnFlush = func(count int) {
			lg.Info("redis buffer flushed", slog.Int("count", count))
		}
		sink = buffered

		health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 15*time.Second)
	}

	// ---- Notifiers ----
	var backends []notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if len(backends) == 0 {
		backends = append(backends, notification.NewLogNotifier())
	}
	notifier := notification.NewFanout(backends...)

	// ---- Exchange client & engine ----
	client := exchange.NewClient(exchange.ClientConfig{BaseURL: cfg.ExchangeBaseURL})
	eng := engine.New(engine.Preset(cfg.EnginePreset))

	// ---- Scan loop ----
	scan := scanner.New(scanner.Config{
		Symbols:      symbols,
		Interval:     cfg.Interval,
		ScanInterval: cfg.ScanInterval,
		Workers:      cfg.ScanWorkers,
		KlineLimit:   cfg.KlineLimit,
	}, client, eng, sink, journalCh, notifier, prom, health, lg)

	// ---- Optional kline stream: rescan a symbol the moment its candle
	// closes instead of waiting for the next tick ----
	if cfg.StreamEnabled {
		streamer := exchange.NewKlineStreamer(exchange.StreamConfig{
			URL:           cfg.ExchangeWSURL,
			RetryStrategy: exchange.RetryExponential,
			OnReconnect:   prom.WSReconnects.Inc,
			OnDrop:        prom.StreamDrops.Inc,
		}, lg)
		if err := streamer.Subscribe(symbols, cfg.Interval); err != nil {
			log.Fatalf("[scanengine] stream subscribe failed: %v", err)
		}
		go func() {
			if err := streamer.Run(ctx); err != nil && ctx.Err() == nil {
				lg.Error("kline stream exited", slog.String("error", err.Error()))
			}
		}()
		go func() {
			for c := range streamer.Out() {
				scan.ScanSymbol(ctx, c.Symbol)
			}
		}()
	}

	go func() {
		sig := <-sigCh
		lg.Info("shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	scan.Run(ctx)

	// Let in-flight journal writes land before exit.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	lg.Info("stopped")
}
