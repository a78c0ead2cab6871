package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trading-mtfsync/config"
	"trading-mtfsync/internal/feed"
	"trading-mtfsync/internal/metrics"
	"trading-mtfsync/internal/sink"
	"trading-mtfsync/internal/source"
	redisstore "trading-mtfsync/internal/store/redis"
	"trading-mtfsync/internal/store/timescale"
)

const (
	breakerFailures = 3
	breakerCooldown = 5 * time.Minute
)

type deps struct {
	source source.Source
	sinks  []sink.Sink

	redis  *redisstore.Writer
	sqlite *sink.SQLiteSink
	feed   *feed.Hub
}

// wire opens the configured source and sinks. Network sinks sit behind a
// breaker so a dead backend does not stall every scheduled run.
func wire(ctx context.Context, cfg *config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{}
	var err error
	switch cfg.Source.Kind {
	case config.SourceSQLite:
		d.source, err = source.NewSQLite(cfg.Source.SQLitePath, cfg.Source.Exchange)
		if err != nil {
			return nil, fmt.Errorf("sqlite source: %w", err)
		}
	default:
		d.source = source.NewCSV(cfg.Source.CSVDir, cfg.Source.CSVPattern)
	}

	sc := cfg.Sinks
	if sc.CSV.Enabled {
		s, err := sink.NewCSV(sc.CSV.Dir, log)
		if err != nil {
			return nil, err
		}
		d.sinks = append(d.sinks, s)
	}
	if sc.SQLite.Enabled {
		d.sqlite, err = sink.NewSQLite(sc.SQLite.Path, log)
		if err != nil {
			return nil, fmt.Errorf("sqlite sink: %w", err)
		}
		d.sinks = append(d.sinks, d.sqlite)
	}
	if sc.Redis.Enabled {
		d.redis, err = redisstore.New(ctx, redisstore.WriterConfig{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("redis sink: %w", err)
		}
		s := sink.NewRedis(d.redis, sc.Redis.MaxLen, sc.Redis.Channel, log)
		d.sinks = append(d.sinks, sink.Guard(s, breakerFailures, breakerCooldown, log))
	}
	if sc.Timescale.Enabled {
		w, err := timescale.New(ctx, timescale.Config{
			DSN:          sc.Timescale.DSN,
			Schema:       sc.Timescale.Schema,
			WriteTimeout: sc.Timescale.WriteTimeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("timescale sink: %w", err)
		}
		d.sinks = append(d.sinks, sink.Guard(sink.NewTimescale(w), breakerFailures, breakerCooldown, log))
	}
	if sc.Feed.Enabled {
		d.feed = feed.NewHub(log)
		d.sinks = append(d.sinks, sink.NewFeed(d.feed))
	}
	return d, nil
}

func (d *deps) sinkNames() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// probe refreshes the dependency section of /healthz until ctx ends.
func (d *deps) probe(ctx context.Context, health *metrics.HealthStatus, every time.Duration) {
	check := func() {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if d.redis != nil {
			health.CheckRedis(cctx, d.redis.Client())
		}
		if d.sqlite != nil {
			health.CheckSQLite(cctx, d.sqlite.Writer().DB())
		}
	}
	check()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}
