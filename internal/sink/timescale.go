package sink

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"trading-mtfsync/internal/store/timescale"
)

// TimescaleSink upserts each synchronized row as a JSONB document.
type TimescaleSink struct {
	w *timescale.Writer
}

func NewTimescale(w *timescale.Writer) *TimescaleSink {
	return &TimescaleSink{w: w}
}

func (s *TimescaleSink) Name() string { return "timescale" }

func (s *TimescaleSink) Close() error { return s.w.Close() }

// TimescaleRows encodes every row of the run. The payload omits "date",
// which is the ts column.
func TimescaleRows(run *Run) ([]timescale.Row, error) {
	res := run.Result
	rows := make([]timescale.Row, 0, run.Rows())
	for i := 0; i < run.Rows(); i++ {
		m := run.Row(i)
		delete(m, "date")
		payload, err := sonic.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("row %d payload: %w", i, err)
		}
		rows = append(rows, timescale.Row{
			TS:          res.Frame.Times[i],
			Symbol:      run.Symbol,
			PrimaryTF:   res.PrimaryTF,
			SecondaryTF: res.SecondaryTF,
			Payload:     payload,
		})
	}
	return rows, nil
}

func (s *TimescaleSink) Write(ctx context.Context, run *Run) error {
	rows, err := TimescaleRows(run)
	if err != nil {
		return err
	}
	return s.w.WriteRows(ctx, rows)
}
