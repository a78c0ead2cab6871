package sink

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"trading-mtfsync/internal/mtf"
	"trading-mtfsync/internal/store/redis"
)

// RedisSink appends every synchronized row to a per-dataset stream.
type RedisSink struct {
	w       *redis.Writer
	maxLen  int64
	channel string
	log     *zap.Logger
}

func NewRedis(w *redis.Writer, maxLen int64, channel string, log *zap.Logger) *RedisSink {
	return &RedisSink{w: w, maxLen: maxLen, channel: channel, log: log}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Close() error { return s.w.Close() }

// Notice is published on the run channel once a dataset is written.
type Notice struct {
	Symbol      string    `msgpack:"symbol"`
	PrimaryTF   string    `msgpack:"primary_tf"`
	SecondaryTF string    `msgpack:"secondary_tf"`
	Stream      string    `msgpack:"stream"`
	Stats       mtf.Stats `msgpack:"stats"`
	Started     int64     `msgpack:"started_ms"`
}

// BuildBatch encodes the run as stream entries plus a completion notice.
func BuildBatch(run *Run, maxLen int64, channel string) (redis.Batch, error) {
	res := run.Result
	b := redis.Batch{
		Stream:  redis.StreamKey(run.Symbol, res.PrimaryTF, res.SecondaryTF),
		MaxLen:  maxLen,
		Entries: make([][]byte, 0, run.Rows()),
		Channel: channel,
	}
	for i := 0; i < run.Rows(); i++ {
		e, err := redis.EncodeRow(run.Row(i))
		if err != nil {
			return redis.Batch{}, fmt.Errorf("row %d: %w", i, err)
		}
		b.Entries = append(b.Entries, e)
	}
	if channel != "" {
		n, err := msgpack.Marshal(Notice{
			Symbol:      run.Symbol,
			PrimaryTF:   string(res.PrimaryTF),
			SecondaryTF: string(res.SecondaryTF),
			Stream:      b.Stream,
			Stats:       res.Stats,
			Started:     run.Started.UnixMilli(),
		})
		if err != nil {
			return redis.Batch{}, fmt.Errorf("encode notice: %w", err)
		}
		b.Notice = n
	}
	return b, nil
}

func (s *RedisSink) Write(ctx context.Context, run *Run) error {
	b, err := BuildBatch(run, s.maxLen, s.channel)
	if err != nil {
		return err
	}
	return s.w.WriteBatch(ctx, b)
}
