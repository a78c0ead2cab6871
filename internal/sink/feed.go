package sink

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"trading-mtfsync/internal/mtf"
	"trading-mtfsync/internal/store/redis"
)

// Broadcaster is the part of feed.Hub the sink needs.
type Broadcaster interface {
	Broadcast(key string, msg []byte)
	Close() error
}

// FeedSink announces each finished run, with its newest row, to live
// WebSocket watchers.
type FeedSink struct {
	hub Broadcaster
}

func NewFeed(hub Broadcaster) *FeedSink { return &FeedSink{hub: hub} }

func (s *FeedSink) Name() string { return "feed" }

func (s *FeedSink) Close() error { return s.hub.Close() }

// FeedMessage is the JSON envelope sent to watchers.
type FeedMessage struct {
	Type        string         `json:"type"`
	Symbol      string         `json:"symbol"`
	PrimaryTF   string         `json:"primary_tf"`
	SecondaryTF string         `json:"secondary_tf"`
	Stats       mtf.Stats      `json:"stats"`
	Latest      map[string]any `json:"latest,omitempty"`
	Started     string         `json:"started"`
}

func (s *FeedSink) Write(ctx context.Context, run *Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := run.Result
	msg := FeedMessage{
		Type:        "run",
		Symbol:      run.Symbol,
		PrimaryTF:   string(res.PrimaryTF),
		SecondaryTF: string(res.SecondaryTF),
		Stats:       res.Stats,
		Started:     run.Started.UTC().Format(DateLayout),
	}
	if n := run.Rows(); n > 0 {
		msg.Latest = run.Row(n - 1)
	}
	b, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode feed message: %w", err)
	}
	s.hub.Broadcast(redis.StreamKey(run.Symbol, res.PrimaryTF, res.SecondaryTF), b)
	return nil
}
