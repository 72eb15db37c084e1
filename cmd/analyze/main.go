// Command analyze runs a single analysis for one market and prints the
// result as JSON. Useful for eyeballing the engine without the full
// scan loop:
//
//	analyze -symbol BTCUSDT -interval 1h -limit 200
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"signal-systemv1/internal/engine"
	"signal-systemv1/internal/exchange"
)

func main() {
	var (
		symbol   = flag.String("symbol", "BTCUSDT", "market symbol")
		interval = flag.String("interval", "15m", "kline interval")
		limit    = flag.Int("limit", 200, "candles to fetch")
		preset   = flag.String("preset", "default", "engine preset (default, conservative)")
		baseURL  = flag.String("base-url", "", "exchange REST base URL (default Binance futures)")
		compact  = flag.Bool("compact", false, "emit single-line JSON")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := exchange.NewClient(exchange.ClientConfig{BaseURL: *baseURL})
	candles, err := client.Klines(ctx, *symbol, *interval, *limit)
	if err != nil {
		log.Fatalf("fetch klines: %v", err)
	}

	eng := engine.New(engine.Preset(*preset))
	res, err := eng.Analyze(candles)
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		log.Fatalf("encode: %v", err)
	}

	if res.Actionable() {
		fmt.Fprintf(os.Stderr, "%s %s: entry %.4f, stop %.4f, target %.4f, %dx\n",
			res.Signal.Action, res.Symbol, res.Signal.Entry, res.Signal.StopLoss,
			res.Signal.TakeProfit, res.Signal.Leverage)
	}
}
