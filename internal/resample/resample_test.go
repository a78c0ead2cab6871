package resample

import (
	"errors"
	"testing"
	"time"

	"trading-mtfsync/internal/model"
)

// makeCandle creates a test bar at the given Unix second.
func makeCandle(unixSec int64, open, high, low, close_, vol float64) model.Candle {
	return model.Candle{
		TS:     time.Unix(unixSec, 0).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close_,
		Volume: vol,
	}
}

func TestAggregate_HourlyToFourHour(t *testing.T) {
	baseTS := int64(1700000000)
	baseTS = baseTS - (baseTS % (4 * 3600)) // aligned to a 4h boundary

	s := model.Series{Symbol: "BTCUSDT", TF: "1h"}
	for i := int64(0); i < 9; i++ {
		f := float64(i)
		s.Candles = append(s.Candles, makeCandle(baseTS+i*3600, 100+f, 110+f, 90-f, 105+f, 10))
	}

	got, err := Aggregate(s, "4h")
	if err != nil {
		t.Fatal(err)
	}
	if got.TF != "4h" || got.Symbol != "BTCUSDT" {
		t.Errorf("series header = %s %s", got.Symbol, got.TF)
	}
	if len(got.Candles) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(got.Candles))
	}

	c := got.Candles[0]
	if !c.TS.Equal(time.Unix(baseTS, 0)) {
		t.Errorf("bucket 0 ts = %s", c.TS)
	}
	if c.Open != 100 {
		t.Errorf("expected open=100, got %v", c.Open)
	}
	if c.High != 113 { // 110 + 3
		t.Errorf("expected high=113, got %v", c.High)
	}
	if c.Low != 87 { // 90 - 3
		t.Errorf("expected low=87, got %v", c.Low)
	}
	if c.Close != 108 { // 105 + 3
		t.Errorf("expected close=108, got %v", c.Close)
	}
	if c.Volume != 40 {
		t.Errorf("expected volume=40, got %v", c.Volume)
	}

	// trailing forming bucket holds only bar 8
	last := got.Candles[2]
	if last.Open != 108 || last.Close != 113 || last.Volume != 10 {
		t.Errorf("trailing bucket = %+v", last)
	}
}

func TestAggregate_Gap(t *testing.T) {
	// bars at 00:00 and 09:00 land in separate buckets; no empty bucket is invented
	s := model.Series{Symbol: "X", TF: "1h", Candles: []model.Candle{
		makeCandle(0, 1, 1, 1, 1, 1),
		makeCandle(9*3600, 2, 2, 2, 2, 1),
	}}
	got, err := Aggregate(s, "4h")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Candles) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got.Candles))
	}
	if got.Candles[1].TS.Unix() != 8*3600 {
		t.Errorf("second bucket at %d, want %d", got.Candles[1].TS.Unix(), 8*3600)
	}
}

func TestAggregate_Incompatible(t *testing.T) {
	s := model.Series{Symbol: "X", TF: "1h", Candles: []model.Candle{makeCandle(0, 1, 1, 1, 1, 1)}}
	for _, tf := range []model.Timeframe{"30m", "15m"} {
		if _, err := Aggregate(s, tf); !errors.Is(err, model.ErrIncompatibleTimeframe) {
			t.Errorf("%s: err = %v, want ErrIncompatibleTimeframe", tf, err)
		}
	}
	s.TF = "3m"
	if _, err := Aggregate(s, "1h"); err != nil {
		t.Errorf("3m -> 1h should be accepted: %v", err)
	}
	s.TF = "8h"
	if _, err := Aggregate(s, "12h"); !errors.Is(err, model.ErrIncompatibleTimeframe) {
		t.Errorf("8h -> 12h: err = %v, want ErrIncompatibleTimeframe", err)
	}
}

func TestAggregate_UnknownAndUnsorted(t *testing.T) {
	s := model.Series{Symbol: "X", TF: "1h", Candles: []model.Candle{
		makeCandle(3600, 1, 1, 1, 1, 1),
		makeCandle(0, 1, 1, 1, 1, 1),
	}}
	if _, err := Aggregate(s, "5h"); !errors.Is(err, model.ErrUnknownTimeframe) {
		t.Errorf("err = %v, want ErrUnknownTimeframe", err)
	}
	if _, err := Aggregate(s, "4h"); !errors.Is(err, model.ErrUnsorted) {
		t.Errorf("err = %v, want ErrUnsorted", err)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got, err := Aggregate(model.Series{Symbol: "X", TF: "1h"}, "4h")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Candles) != 0 {
		t.Errorf("expected no candles, got %d", len(got.Candles))
	}
}

func TestAggregate_MultiDayTargetsRejected(t *testing.T) {
	s := model.Series{Symbol: "X", TF: "1d", Candles: []model.Candle{makeCandle(0, 1, 1, 1, 1, 1)}}
	for _, tf := range []model.Timeframe{"3d", "1w"} {
		if _, err := Aggregate(s, tf); !errors.Is(err, model.ErrIncompatibleTimeframe) {
			t.Errorf("1d -> %s: err = %v, want ErrIncompatibleTimeframe", tf, err)
		}
	}
	got, err := Aggregate(s, "1d")
	if err != nil || len(got.Candles) != 1 {
		t.Errorf("1d -> 1d: %v, %d candles", err, len(got.Candles))
	}
}
