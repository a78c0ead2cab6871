// Package sink persists synchronized datasets.
package sink

import (
	"context"
	"time"

	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/mtf"
)

// DateLayout formats the leading date column of every exported row.
const DateLayout = "2006-01-02 15:04:05"

// Sink is one output destination.
type Sink interface {
	Name() string
	Write(ctx context.Context, run *Run) error
	Close() error
}

// Run is everything a sink may persist for one symbol.
type Run struct {
	Symbol   string
	Exchange string

	// Source candles, as loaded or derived.
	Primary   model.Series
	Secondary model.Series

	Result  *mtf.Result
	Started time.Time
}

// Stamp is the run time used in file names.
func (r *Run) Stamp() string {
	return r.Started.UTC().Format("20060102_150405")
}

// Rows returns the number of synchronized rows.
func (r *Run) Rows() int {
	if r.Result == nil || r.Result.Frame == nil {
		return 0
	}
	return r.Result.Frame.Len()
}

// Row returns row i as column name -> value plus "date". Invalid cells
// are nil.
func (r *Run) Row(i int) map[string]any {
	f := r.Result.Frame
	row := make(map[string]any, len(f.Columns)+1)
	row["date"] = f.Times[i].UTC().Format(DateLayout)
	for c := range f.Columns {
		row[f.Columns[c].Name] = f.Columns[c].Value(i)
	}
	return row
}
