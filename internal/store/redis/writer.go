package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"signal-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Signal streams keep roughly a week of 15m-cadence entries.
	signalStreamMaxLen = 1000
	defaultLatestTTL   = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes analysis results and signals to Redis.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// Run reads analysis results from resultCh and writes them to Redis.
// Blocks until ctx is cancelled or resultCh is closed.
func (w *Writer) Run(ctx context.Context, resultCh <-chan *model.AnalysisResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-resultCh:
			if !ok {
				return
			}
			if err := w.WriteResult(ctx, res); err != nil {
				log.Printf("[redis] write error for %s: %v", res.Key(), err)
			}
		}
	}
}

// WriteResult publishes one analysis result: SET the latest key with TTL,
// PUBLISH for live subscribers, and XADD to the per-interval signal stream
// when the result is actionable. All three go out in one pipeline.
func (w *Writer) WriteResult(ctx context.Context, res *model.AnalysisResult) error {
	jsonData := string(res.JSON())

	pipe := w.client.Pipeline()
	pipe.Set(ctx, res.LatestKey(), jsonData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:analysis:"+res.Key(), jsonData)

	if res.Actionable() {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: res.StreamKey(),
			MaxLen: signalStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
	}

	_, err := pipe.Exec(ctx)
	return err
}

// WriteBatch publishes many results in a single pipeline. Used at the end of
// a scan cycle so the whole symbol set goes out in one roundtrip.
func (w *Writer) WriteBatch(ctx context.Context, results []*model.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}

	pipe := w.client.Pipeline()
	for _, res := range results {
		jsonData := string(res.JSON())
		pipe.Set(ctx, res.LatestKey(), jsonData, defaultLatestTTL)
		pipe.Publish(ctx, "pub:analysis:"+res.Key(), jsonData)
		if res.Actionable() {
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: res.StreamKey(),
				MaxLen: signalStreamMaxLen,
				Approx: true,
				Values: map[string]interface{}{"data": jsonData},
			})
		}
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis batch (%d results): %w", len(results), err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
