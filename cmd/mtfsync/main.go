// cmd/mtfsync enriches candle series for a primary and a secondary
// timeframe, projects the primary context onto every secondary bar and
// exports the result.
//
// Usage:
//
//	go run ./cmd/mtfsync --config=config.yaml
//	go run ./cmd/mtfsync --config=config.yaml --once --symbols=BTCUSDT,ETHUSDT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trading-mtfsync/config"
	"trading-mtfsync/internal/logger"
	"trading-mtfsync/internal/metrics"
	"trading-mtfsync/internal/pipeline"
	"trading-mtfsync/internal/scheduler"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	once := flag.Bool("once", false, "Run once and exit even if a schedule is configured")
	symbols := flag.String("symbols", "", "Comma-separated symbols, overrides config")
	flag.Parse()

	if *symbols != "" {
		os.Setenv("MTF_SYMBOLS", *symbols)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[mtfsync] config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("mtfsync", cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[mtfsync] logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	wired, err := wire(ctx, cfg, log)
	if err != nil {
		log.Fatal("init failed", zap.Error(err))
	}

	p := pipeline.New(pipeline.Config{
		PrimaryTF:     cfg.PrimaryTF(),
		SecondaryTF:   cfg.SecondaryTF(),
		DerivePrimary: cfg.Pipeline.DerivePrimary,
		Exchange:      cfg.Source.Exchange,
		Indicators:    cfg.Indicators,
		Sync:          cfg.Sync,
		Concurrency:   cfg.Pipeline.Concurrency,
		RunTimeout:    cfg.Pipeline.RunTimeout,
	}, wired.source, wired.sinks, m, health, log)
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	var srv *metrics.Server
	if cfg.Metrics.Addr != "" {
		srv = metrics.NewServer(cfg.Metrics.Addr, m, health, log)
		if wired.feed != nil {
			srv.Handle("/ws", wired.feed)
		}
		srv.Start()
		go wired.probe(ctx, health, 30*time.Second)
	}

	jobs := pipeline.Jobs(cfg.Pipeline.Symbols)
	runAll := func(ctx context.Context) error {
		_, err := p.RunAll(ctx, jobs)
		return err
	}

	log.Info("mtfsync starting",
		zap.Strings("symbols", cfg.Pipeline.Symbols),
		zap.String("primary_tf", cfg.Pipeline.PrimaryTF),
		zap.String("secondary_tf", cfg.Pipeline.SecondaryTF),
		zap.String("source", cfg.Source.Kind),
		zap.String("sinks", strings.Join(wired.sinkNames(), ",")))

	if cfg.Pipeline.Schedule == "" || *once {
		err := runAll(ctx)
		shutdown(srv, log)
		if err != nil {
			log.Error("run failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	sched := scheduler.New(ctx, log)
	if err := sched.Register(cfg.Pipeline.Schedule, runAll); err != nil {
		log.Fatal("schedule", zap.Error(err))
	}
	// first run immediately, failures are retried on the next tick
	_ = sched.RunNow()
	sched.Start()

	<-ctx.Done()
	log.Info("shutdown signal received")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	shutdown(srv, log)
}

func shutdown(srv *metrics.Server, log *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Warn("metrics server shutdown", zap.Error(err))
	}
}
