package source

import (
	"context"
	"fmt"

	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/store/sqlite"
)

// SQLiteSource reads the candles_tf table.
type SQLiteSource struct {
	reader   *sqlite.Reader
	exchange string
}

func NewSQLite(path, exchange string) (*SQLiteSource, error) {
	r, err := sqlite.NewReader(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteSource{reader: r, exchange: exchange}, nil
}

func (s *SQLiteSource) Load(ctx context.Context, symbol string, tf model.Timeframe) (model.Series, error) {
	candles, err := s.reader.ReadCandles(ctx, s.exchange, symbol, tf)
	if err != nil {
		return model.Series{}, err
	}
	if len(candles) == 0 {
		return model.Series{}, fmt.Errorf("load %s %s from sqlite: %w", symbol, tf, model.ErrEmptySeries)
	}
	return finish(model.Series{Symbol: symbol, TF: tf, Candles: candles})
}

func (s *SQLiteSource) Close() error { return s.reader.Close() }
