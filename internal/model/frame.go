package model

import (
	"fmt"
	"time"
)

// ColumnKind distinguishes real-valued columns from enumerated labels.
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Label
)

// Column is one named series aligned 1:1 with a Frame's Times.
// Valid == nil means every entry is present.
type Column struct {
	Name  string     `json:"name"`
	Kind  ColumnKind `json:"kind"`
	Num   []float64  `json:"num,omitempty"`
	Text  []string   `json:"text,omitempty"`
	Valid []bool     `json:"valid,omitempty"`
}

// IsValid reports whether entry i is present.
func (c *Column) IsValid(i int) bool {
	return c.Valid == nil || c.Valid[i]
}

// Value returns entry i as an interface value: float64, string or nil.
func (c *Column) Value(i int) any {
	if !c.IsValid(i) {
		return nil
	}
	if c.Kind == Label {
		return c.Text[i]
	}
	return c.Num[i]
}

// Frame is a timestamp-indexed column store for one timeframe: the raw OHLCV
// columns plus any attached indicator columns.
type Frame struct {
	Symbol  string
	TF      Timeframe
	Times   []time.Time
	Columns []Column

	index map[string]int
}

// NewFrame creates a frame seeded with the OHLCV columns of s.
func NewFrame(s Series) *Frame {
	n := len(s.Candles)
	f := &Frame{
		Symbol: s.Symbol,
		TF:     s.TF,
		Times:  make([]time.Time, n),
	}
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	cls := make([]float64, n)
	vol := make([]float64, n)
	for i, c := range s.Candles {
		f.Times[i] = c.TS
		open[i], high[i], low[i], cls[i], vol[i] = c.Open, c.High, c.Low, c.Close, c.Volume
	}
	// names are distinct, errors impossible
	_ = f.AddNumeric("open", open)
	_ = f.AddNumeric("high", high)
	_ = f.AddNumeric("low", low)
	_ = f.AddNumeric("close", cls)
	_ = f.AddNumeric("volume", vol)
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Times) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i := range f.Columns {
		out[i] = f.Columns[i].Name
	}
	return out
}

// Column looks up a column by name. It never writes to f, so a frame that
// is no longer being built can be read from several goroutines.
func (f *Frame) Column(name string) (*Column, bool) {
	if len(f.index) == len(f.Columns) {
		i, ok := f.index[name]
		if !ok {
			return nil, false
		}
		return &f.Columns[i], true
	}
	// built as a literal or appended to directly
	for i := range f.Columns {
		if f.Columns[i].Name == name {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

// Num returns the numeric values of a column, or nil if absent or a label.
func (f *Frame) Num(name string) []float64 {
	c, ok := f.Column(name)
	if !ok || c.Kind != Numeric {
		return nil
	}
	return c.Num
}

// AddNumeric attaches a real-valued column.
func (f *Frame) AddNumeric(name string, vals []float64) error {
	return f.Add(Column{Name: name, Kind: Numeric, Num: vals})
}

// AddLabel attaches an enumerated column.
func (f *Frame) AddLabel(name string, vals []string) error {
	return f.Add(Column{Name: name, Kind: Label, Text: vals})
}

// Add attaches c after checking its length and name.
func (f *Frame) Add(c Column) error {
	n := len(c.Num)
	if c.Kind == Label {
		n = len(c.Text)
	}
	if n != len(f.Times) {
		return fmt.Errorf("column %s has %d rows, frame has %d", c.Name, n, len(f.Times))
	}
	if c.Valid != nil && len(c.Valid) != n {
		return fmt.Errorf("column %s validity has %d rows, frame has %d", c.Name, len(c.Valid), n)
	}
	if len(f.index) != len(f.Columns) {
		f.reindex()
	}
	if _, dup := f.index[c.Name]; dup {
		return fmt.Errorf("%s: %w", c.Name, ErrColumnCollision)
	}
	f.index[c.Name] = len(f.Columns)
	f.Columns = append(f.Columns, c)
	return nil
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Columns))
	for i := range f.Columns {
		f.index[f.Columns[i].Name] = i
	}
}
