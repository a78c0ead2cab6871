package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
)

const (
	defaultLatestTTL = 24 * time.Hour
	pipelineChunk    = 500
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes synchronized rows to Redis Streams.
type Writer struct {
	client *goredis.Client
	log    *zap.Logger
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(ctx context.Context, cfg WriterConfig, log *zap.Logger) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("redis connected", zap.String("addr", cfg.Addr))
	return &Writer{client: client, log: log}, nil
}

// StreamKey returns the stream holding one synchronized dataset,
// e.g. "mtf:BTCUSDT:4h:1h".
func StreamKey(symbol string, primary, secondary model.Timeframe) string {
	return "mtf:" + symbol + ":" + string(primary) + ":" + string(secondary)
}

// LatestKey returns the key holding the newest row of a stream.
func LatestKey(stream string) string { return stream + ":latest" }

// Batch is one run's worth of stream entries.
type Batch struct {
	Stream  string
	MaxLen  int64
	Entries [][]byte // encoded rows, oldest first

	// Channel, if set, receives Notice once every entry is written.
	Channel string
	Notice  []byte
}

// WriteBatch appends every entry to the stream, stores the last entry
// under LatestKey and publishes the notice. Entries are sent in pipelined
// chunks; the first failing chunk aborts the batch.
func (w *Writer) WriteBatch(ctx context.Context, b Batch) error {
	if len(b.Entries) == 0 {
		return nil
	}
	for lo := 0; lo < len(b.Entries); lo += pipelineChunk {
		hi := min(lo+pipelineChunk, len(b.Entries))
		pipe := w.client.Pipeline()
		for _, e := range b.Entries[lo:hi] {
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: b.Stream,
				MaxLen: b.MaxLen,
				Approx: true,
				Values: map[string]interface{}{"data": e},
			})
		}
		if hi == len(b.Entries) {
			pipe.Set(ctx, LatestKey(b.Stream), b.Entries[hi-1], defaultLatestTTL)
			if b.Channel != "" {
				pipe.Publish(ctx, b.Channel, b.Notice)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis pipeline %s (%d entries): %w", b.Stream, hi-lo, err)
		}
	}
	w.log.Debug("redis stream written", zap.String("stream", b.Stream), zap.Int("entries", len(b.Entries)))
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
