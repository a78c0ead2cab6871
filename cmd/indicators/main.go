// cmd/indicators enriches a single candle CSV with the full indicator set
// and writes it back out as CSV.
//
// Usage:
//
//	go run ./cmd/indicators --input=data/BTCUSDT_4h.csv --tf=4h
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"trading-mtfsync/config"
	"trading-mtfsync/internal/indicator"
	"trading-mtfsync/internal/logger"
	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/mtf"
	"trading-mtfsync/internal/pipeline"
	"trading-mtfsync/internal/sink"
	"trading-mtfsync/internal/source"
)

func main() {
	input := flag.String("input", "", "Candle CSV (date,open,high,low,close,volume)")
	output := flag.String("output", "", "Output CSV (default: <input>_indicators.csv)")
	tfStr := flag.String("tf", "1h", "Timeframe of the input")
	symbol := flag.String("symbol", "", "Symbol label (default: derived from file name)")
	cfgPath := flag.String("config", "", "YAML config supplying indicator parameters (optional)")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log, err := logger.New("indicators", *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[indicators] logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if *input == "" {
		log.Fatal("--input is required")
	}
	tf, err := model.ParseTimeframe(*tfStr)
	if err != nil {
		log.Fatal("bad --tf", zap.Error(err))
	}
	params, err := loadParams(*cfgPath)
	if err != nil {
		log.Fatal("indicator params", zap.Error(err))
	}
	if *symbol == "" {
		*symbol = strings.SplitN(strings.TrimSuffix(filepath.Base(*input), filepath.Ext(*input)), "_", 2)[0]
	}
	if *output == "" {
		*output = strings.TrimSuffix(*input, filepath.Ext(*input)) + "_indicators.csv"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal("open input", zap.Error(err))
	}
	series, err := source.ReadCSV(f, *symbol, tf)
	f.Close()
	if err != nil {
		log.Fatal("read input", zap.String("file", *input), zap.Error(err))
	}

	frame, err := pipeline.EnrichOnly(ctx, series, params)
	if err != nil {
		log.Fatal("compute", zap.Error(err))
	}
	if err := writeCSV(*output, frame); err != nil {
		log.Fatal("write output", zap.Error(err))
	}

	strong, bull, bear := 0, 0, 0
	for _, v := range frame.Num(indicator.ColADX) {
		if v > mtf.DefaultADXStrongThreshold {
			strong++
		}
	}
	for _, v := range frame.Num(indicator.ColEMACross) {
		if v > 0 {
			bull++
		} else if v < 0 {
			bear++
		}
	}
	log.Info("indicators written",
		zap.String("file", *output),
		zap.String("symbol", *symbol),
		zap.String("tf", string(tf)),
		zap.Int("rows", frame.Len()),
		zap.Int("columns", len(frame.Columns)),
		zap.Int("strong_trend", strong),
		zap.Int("bullish_cross", bull),
		zap.Int("bearish_cross", bear))
}

func loadParams(path string) (indicator.Params, error) {
	if path == "" {
		return indicator.DefaultParams(), nil
	}
	cfg := config.Default()
	if err := config.ReadFile(path, cfg); err != nil {
		return indicator.Params{}, err
	}
	return cfg.Indicators, cfg.Indicators.Validate()
}

func writeCSV(path string, f *model.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	if err := sink.WriteFrame(bw, f); err != nil {
		out.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
