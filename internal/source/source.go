// Package source loads candle series for the pipeline.
package source

import (
	"context"
	"fmt"
	"sort"

	"trading-mtfsync/internal/model"
)

// Source loads one symbol at one timeframe.
type Source interface {
	Load(ctx context.Context, symbol string, tf model.Timeframe) (model.Series, error)
	Close() error
}

// finish orders candles by time and rejects duplicate timestamps.
func finish(s model.Series) (model.Series, error) {
	sort.SliceStable(s.Candles, func(i, j int) bool {
		return s.Candles[i].TS.Before(s.Candles[j].TS)
	})
	if err := s.Validate(); err != nil {
		return model.Series{}, fmt.Errorf("load %s %s: %w", s.Symbol, s.TF, err)
	}
	return s, nil
}
