package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"signal-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string // consumer group name, e.g. "signal-consumers"
	ConsumerName  string // unique consumer name, e.g. hostname
}

// Reader consumes signal streams via consumer groups and reads latest
// analysis snapshots. Used by downstream services (alerting, dashboards).
type Reader struct {
	client        *goredis.Client
	consumerGroup string
	consumerName  string
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	group := cfg.ConsumerGroup
	if group == "" {
		group = "signal-consumers"
	}
	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = "worker-1"
	}

	log.Printf("[redis-reader] connected to %s (group=%s, consumer=%s)", cfg.Addr, group, consumer)
	return &Reader{
		client:        client,
		consumerGroup: group,
		consumerName:  consumer,
	}, nil
}

// LatestAnalysis reads the most recent analysis for a symbol and interval.
// Returns nil without error when no analysis has been published yet (or the
// latest key expired).
func (r *Reader) LatestAnalysis(ctx context.Context, symbol, interval string) (*model.AnalysisResult, error) {
	key := "analysis:latest:" + symbol + ":" + interval
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var res model.AnalysisResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &res, nil
}

// EnsureConsumerGroup creates a consumer group on the given streams if it
// doesn't exist. Uses "$" as start ID (only new messages) for fresh groups.
func (r *Reader) EnsureConsumerGroup(ctx context.Context, streams []string) error {
	for _, stream := range streams {
		err := r.client.XGroupCreateMkStream(ctx, stream, r.consumerGroup, "$").Err()
		if err != nil {
			// Ignore BUSYGROUP — group already exists
			if err.Error() != "BUSYGROUP Consumer Group name already exists" {
				return fmt.Errorf("xgroup create %s: %w", stream, err)
			}
		}
	}
	return nil
}

// ConsumeSignals reads emitted signals from Redis Streams using consumer
// groups. Blocks on XREADGROUP and sends parsed results to the output
// channel. Returns when ctx is cancelled.
func (r *Reader) ConsumeSignals(ctx context.Context, streams []string, out chan<- *model.AnalysisResult) error {
	args := make([]string, len(streams)*2)
	for i, s := range streams {
		args[i] = s
		args[len(streams)+i] = ">"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := r.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    r.consumerGroup,
			Consumer: r.consumerName,
			Streams:  args,
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[redis-reader] xreadgroup error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					r.client.XAck(ctx, stream.Stream, r.consumerGroup, msg.ID)
					continue
				}

				var res model.AnalysisResult
				if err := json.Unmarshal([]byte(data), &res); err != nil {
					log.Printf("[redis-reader] unmarshal signal error: %v", err)
					// ACK even on bad message to avoid a poison pill
					r.client.XAck(ctx, stream.Stream, r.consumerGroup, msg.ID)
					continue
				}

				select {
				case out <- &res:
				case <-ctx.Done():
					return ctx.Err()
				}

				// ACK after successful processing
				r.client.XAck(ctx, stream.Stream, r.consumerGroup, msg.ID)
			}
		}
	}
}

// SubscribeAnalysis subscribes to pub:analysis:* and forwards live analysis
// results into the output channel. Slow consumers miss updates rather than
// blocking the subscriber. Blocks until ctx is cancelled.
func (r *Reader) SubscribeAnalysis(ctx context.Context, out chan<- *model.AnalysisResult) error {
	pubsub := r.client.PSubscribe(ctx, "pub:analysis:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var res model.AnalysisResult
			if err := json.Unmarshal([]byte(msg.Payload), &res); err != nil {
				continue
			}
			select {
			case out <- &res:
			default:
			}
		}
	}
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
