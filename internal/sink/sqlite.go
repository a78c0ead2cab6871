package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/store/sqlite"
)

// SQLiteSink stores the source candles and every synchronized cell.
type SQLiteSink struct {
	w   *sqlite.Writer
	log *zap.Logger
}

func NewSQLite(path string, log *zap.Logger) (*SQLiteSink, error) {
	w, err := sqlite.New(sqlite.WriterConfig{DBPath: path}, log)
	if err != nil {
		return nil, err
	}
	return &SQLiteSink{w: w, log: log}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

// Writer exposes the store for health checks.
func (s *SQLiteSink) Writer() *sqlite.Writer { return s.w }

func (s *SQLiteSink) Close() error { return s.w.Close() }

func (s *SQLiteSink) Write(ctx context.Context, run *Run) error {
	if run.Secondary.Len() > 0 {
		if err := s.w.WriteCandles(ctx, run.Exchange, run.Secondary); err != nil {
			return fmt.Errorf("secondary candles: %w", err)
		}
	}
	if run.Primary.Len() > 0 {
		if err := s.w.WriteCandles(ctx, run.Exchange, run.Primary); err != nil {
			return fmt.Errorf("primary candles: %w", err)
		}
	}

	key := sqlite.SyncKey{Symbol: run.Symbol, PrimaryTF: run.Result.PrimaryTF, SecondaryTF: run.Result.SecondaryTF}
	if err := s.w.WriteSyncCells(ctx, key, SyncCells(run)); err != nil {
		return err
	}
	s.log.Debug("sqlite sink written", zap.String("symbol", run.Symbol), zap.Int("rows", run.Rows()))
	return nil
}

// SyncCells flattens the synchronized frame into one cell per row and
// column.
func SyncCells(run *Run) []sqlite.SyncCell {
	f := run.Result.Frame
	cells := make([]sqlite.SyncCell, 0, f.Len()*len(f.Columns))
	for i, ts := range f.Times {
		for c := range f.Columns {
			col := &f.Columns[c]
			cell := sqlite.SyncCell{TS: ts, Column: col.Name, Kind: col.Kind, Valid: col.IsValid(i)}
			if cell.Valid {
				if col.Kind == model.Label {
					cell.Text = col.Text[i]
				} else {
					cell.Value = col.Num[i]
				}
			}
			cells = append(cells, cell)
		}
	}
	return cells
}
