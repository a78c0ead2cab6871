package model

import (
	"fmt"
	"time"
)

// Candle is one OHLCV bar. TS is the bar open time (UTC).
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered run of candles for one symbol at one timeframe.
type Series struct {
	Symbol  string
	TF      Timeframe
	Candles []Candle
}

// Len returns the number of candles.
func (s *Series) Len() int { return len(s.Candles) }

// Validate checks that timestamps are strictly increasing.
func (s *Series) Validate() error {
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].TS.After(s.Candles[i-1].TS) {
			return fmt.Errorf("%s %s index %d (%s after %s): %w",
				s.Symbol, s.TF, i, s.Candles[i].TS.Format(time.RFC3339), s.Candles[i-1].TS.Format(time.RFC3339), ErrUnsorted)
		}
	}
	return nil
}

// Closes returns the close prices as a new slice.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high prices as a new slice.
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices as a new slice.
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}
