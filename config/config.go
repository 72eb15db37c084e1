package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Exchange REST/WS endpoints (Binance USDT-M futures compatible)
	ExchangeBaseURL string
	ExchangeWSURL   string

	// Market selection
	Symbols  string // comma-separated, e.g. "BTCUSDT,ETHUSDT"
	Interval string // kline interval, e.g. "15m", "1h"

	// Scan loop
	ScanInterval time.Duration
	ScanWorkers  int
	KlineLimit   int // candles fetched per scan

	// When true, a kline WebSocket stream triggers an immediate rescan
	// of a symbol the moment its candle closes, on top of the ticker.
	StreamEnabled bool

	// Engine preset name ("default", "conservative")
	EnginePreset string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string

	// Notifications (all optional)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ExchangeBaseURL: getEnv("EXCHANGE_BASE_URL", "https://fapi.binance.com"),
		ExchangeWSURL:   getEnv("EXCHANGE_WS_URL", "wss://fstream.binance.com/ws"),

		Symbols:  getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT"),
		Interval: getEnv("INTERVAL", "15m"),

		ScanInterval: getEnvDuration("SCAN_INTERVAL", time.Minute),
		ScanWorkers:  getEnvInt("SCAN_WORKERS", 4),
		KlineLimit:   getEnvInt("KLINE_LIMIT", 200),

		StreamEnabled: getEnvBool("STREAM_ENABLED", false),

		EnginePreset: getEnv("ENGINE_PRESET", "default"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

// ParseSymbols splits the Symbols string into a deduplicated, uppercased list.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.ToUpper(strings.TrimSpace(p))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
