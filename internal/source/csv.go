package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trading-mtfsync/internal/model"
)

const dateLayout = "2006-01-02 15:04:05"

// CSVSource reads files laid out as date,open,high,low,close,volume.
type CSVSource struct {
	Dir     string
	Pattern string // {symbol} and {tf} are substituted
}

func NewCSV(dir, pattern string) *CSVSource {
	return &CSVSource{Dir: dir, Pattern: pattern}
}

// Path returns the file holding symbol at tf.
func (c *CSVSource) Path(symbol string, tf model.Timeframe) string {
	name := strings.NewReplacer("{symbol}", symbol, "{tf}", string(tf)).Replace(c.Pattern)
	return filepath.Join(c.Dir, name)
}

func (c *CSVSource) Load(ctx context.Context, symbol string, tf model.Timeframe) (model.Series, error) {
	if err := ctx.Err(); err != nil {
		return model.Series{}, err
	}
	path := c.Path(symbol, tf)
	f, err := os.Open(path)
	if err != nil {
		return model.Series{}, fmt.Errorf("open candles: %w", err)
	}
	defer f.Close()

	s, err := ReadCSV(f, symbol, tf)
	if err != nil {
		return model.Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (c *CSVSource) Close() error { return nil }

// ReadCSV parses candles from r. Columns are located by header name, so
// extra columns (e.g. an earlier indicator export) are ignored.
func ReadCSV(r io.Reader, symbol string, tf model.Timeframe) (model.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Series{}, fmt.Errorf("missing header: %w", model.ErrEmptySeries)
		}
		return model.Series{}, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return model.Series{}, err
	}

	s := model.Series{Symbol: symbol, TF: tf}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		c, err := parseRecord(rec, idx)
		if err != nil {
			return model.Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		s.Candles = append(s.Candles, c)
	}
	return finish(s)
}

var csvFields = []string{"date", "open", "high", "low", "close", "volume"}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h == "timestamp" || h == "time" {
			h = "date"
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, f := range csvFields {
		if f == "volume" {
			continue
		}
		if _, ok := idx[f]; !ok {
			return nil, fmt.Errorf("missing %q column", f)
		}
	}
	return idx, nil
}

func parseRecord(rec []string, idx map[string]int) (model.Candle, error) {
	var c model.Candle
	ts, err := ParseTime(field(rec, idx, "date"))
	if err != nil {
		return c, err
	}
	c.TS = ts
	prices := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, name := range csvFields[1:] {
		raw := field(rec, idx, name)
		if raw == "" && name == "volume" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return c, fmt.Errorf("%s %q: %w", name, raw, err)
		}
		*prices[i] = d.InexactFloat64()
	}
	return c, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ParseTime accepts "2006-01-02 15:04:05" (UTC), RFC3339 or epoch
// milliseconds.
func ParseTime(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}
