package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/store/sqlite"
)

const sample = `date,open,high,low,close,volume
2024-01-01 02:00:00,101.5,103,100,102.25,7
2024-01-01 00:00:00,100,101,99,100.5,10
2024-01-01 01:00:00,100.5,102,100,101.5,12.5
`

func TestReadCSV_SortsAndParses(t *testing.T) {
	s, err := ReadCSV(strings.NewReader(sample), "BTCUSDT", "1h")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 || s.Symbol != "BTCUSDT" || s.TF != "1h" {
		t.Fatalf("series = %+v", s)
	}
	first := s.Candles[0]
	if !first.TS.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first ts = %v", first.TS)
	}
	if first.Open != 100 || first.Close != 100.5 || first.Volume != 10 {
		t.Errorf("first = %+v", first)
	}
	if s.Candles[1].Volume != 12.5 {
		t.Errorf("volume = %v", s.Candles[1].Volume)
	}
}

func TestReadCSV_HeaderByName(t *testing.T) {
	in := "timestamp,close,open,low,high,ema55\n1704067200000,2,1,0.5,3,9\n"
	s, err := ReadCSV(strings.NewReader(in), "X", "1h")
	if err != nil {
		t.Fatal(err)
	}
	c := s.Candles[0]
	if c.Open != 1 || c.High != 3 || c.Low != 0.5 || c.Close != 2 || c.Volume != 0 {
		t.Errorf("candle = %+v", c)
	}
	if !c.TS.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ts = %v", c.TS)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		is   error
	}{
		{"empty", "", model.ErrEmptySeries},
		{"missing close", "date,open,high,low\n", nil},
		{"bad price", "date,open,high,low,close\n2024-01-01 00:00:00,x,1,1,1\n", nil},
		{"bad date", "date,open,high,low,close\nyesterday,1,1,1,1\n", nil},
		{"duplicate ts", "date,open,high,low,close\n2024-01-01 00:00:00,1,1,1,1\n2024-01-01 00:00:00,1,1,1,1\n", model.ErrUnsorted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), "X", "1h")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 5, 4, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-05 04:00:00", "2024-03-05T04:00:00Z", "2024-03-05T06:00:00+02:00", "1709611200000"} {
		got, err := ParseTime(raw)
		if err != nil {
			t.Errorf("%s: %v", raw, err)
			continue
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Errorf("%s = %v", raw, got)
		}
	}
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	src := NewCSV(dir, "{symbol}_{tf}.csv")
	if got := src.Path("ETHUSDT", "4h"); got != filepath.Join(dir, "ETHUSDT_4h.csv") {
		t.Errorf("path = %s", got)
	}
	if err := os.WriteFile(src.Path("ETHUSDT", "1h"), []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := src.Load(context.Background(), "ETHUSDT", "1h")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Errorf("len = %d", s.Len())
	}
	if _, err := src.Load(context.Background(), "ETHUSDT", "4h"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestSQLiteSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.db")
	w, err := sqlite.New(sqlite.WriterConfig{DBPath: path}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	in, err := ReadCSV(strings.NewReader(sample), "BTCUSDT", "1h")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := w.WriteCandles(ctx, "binance", in); err != nil {
		t.Fatal(err)
	}

	src, err := NewSQLite(path, "binance")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	s, err := src.Load(ctx, "BTCUSDT", "1h")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 || s.Candles[2].Close != 102.25 {
		t.Errorf("series = %+v", s)
	}
	if _, err := src.Load(ctx, "BTCUSDT", "4h"); !errors.Is(err, model.ErrEmptySeries) {
		t.Errorf("err = %v", err)
	}
}
