package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in   string
		want Timeframe
		dur  time.Duration
	}{
		{"4h", "4h", 4 * time.Hour},
		{" 1H ", "1h", time.Hour},
		{"30m", "30m", 30 * time.Minute},
		{"1d", "1d", 24 * time.Hour},
	}
	for _, tt := range tests {
		tf, err := ParseTimeframe(tt.in)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q): %v", tt.in, err)
		}
		if tf != tt.want {
			t.Errorf("ParseTimeframe(%q) = %q, want %q", tt.in, tf, tt.want)
		}
		d, err := tf.Duration()
		if err != nil || d != tt.dur {
			t.Errorf("%s.Duration() = %v, %v; want %v", tf, d, err, tt.dur)
		}
	}

	if _, err := ParseTimeframe("7x"); !errors.Is(err, ErrUnknownTimeframe) {
		t.Errorf("expected ErrUnknownTimeframe, got %v", err)
	}
	if got := Timeframe("4h").Suffix(); got != "_4h" {
		t.Errorf("Suffix() = %q", got)
	}
}

func TestSeries_Validate(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Series{Symbol: "BTCUSDT", TF: "1h", Candles: []Candle{
		{TS: base}, {TS: base.Add(time.Hour)}, {TS: base.Add(2 * time.Hour)},
	}}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Candles[2].TS = base.Add(time.Hour)
	if err := s.Validate(); !errors.Is(err, ErrUnsorted) {
		t.Errorf("duplicate timestamp: expected ErrUnsorted, got %v", err)
	}
}

func TestNewFrame_OHLCVColumns(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFrame(Series{Symbol: "ETHUSDT", TF: "4h", Candles: []Candle{
		{TS: base, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{TS: base.Add(4 * time.Hour), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
	}})

	want := []string{"open", "high", "low", "close", "volume"}
	got := f.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if c := f.Num("close"); c[1] != 2.5 {
		t.Errorf("close[1] = %v, want 2.5", c[1])
	}
}

func TestFrame_AddRejectsBadColumns(t *testing.T) {
	f := NewFrame(Series{TF: "1h", Candles: []Candle{{TS: time.Unix(0, 0)}}})

	if err := f.AddNumeric("close", []float64{1}); !errors.Is(err, ErrColumnCollision) {
		t.Errorf("duplicate name: expected ErrColumnCollision, got %v", err)
	}
	if err := f.AddNumeric("ema10", []float64{1, 2}); err == nil {
		t.Error("length mismatch: expected error")
	}
	if err := f.AddLabel("squeeze_state", []string{string(SqueezeOn)}); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	c, ok := f.Column("squeeze_state")
	if !ok || c.Value(0) != "squeeze_on" {
		t.Errorf("label value = %v", c.Value(0))
	}
}

func TestSqueezeState_Numeric(t *testing.T) {
	if SqueezeOn.Numeric() != 1 || SqueezeOff.Numeric() != -1 || NoSqueeze.Numeric() != 0 {
		t.Error("unexpected numeric encoding")
	}
}

func TestFrameColumn_ReadDoesNotBuildIndex(t *testing.T) {
	f := &Frame{
		Times:   []time.Time{time.Unix(0, 0)},
		Columns: []Column{{Name: "close", Kind: Numeric, Num: []float64{1}}},
	}
	if c, ok := f.Column("close"); !ok || c.Num[0] != 1 {
		t.Fatalf("close lookup = %v, %v", c, ok)
	}
	if _, ok := f.Column("open"); ok {
		t.Error("open should be absent")
	}
	if f.index != nil {
		t.Error("lookup must not write the index")
	}

	// appending directly after Add leaves the index short; lookups still work
	if err := f.AddNumeric("high", []float64{2}); err != nil {
		t.Fatal(err)
	}
	f.Columns = append(f.Columns, Column{Name: "low", Kind: Numeric, Num: []float64{0}})
	if _, ok := f.Column("low"); !ok {
		t.Error("low should be found by scan")
	}
	if err := f.AddNumeric("low", []float64{0}); !errors.Is(err, ErrColumnCollision) {
		t.Errorf("duplicate low: %v", err)
	}
}
