// Package resample builds a coarser candle series from a finer one.
// Bars are grouped into buckets aligned to the Unix epoch
// (bucket = ts - ts%tf) and merged in one forward pass.
package resample

import (
	"fmt"
	"time"

	"trading-mtfsync/internal/model"
)

const day = 24 * time.Hour

// Aggregate resamples s into tf. open is the first bar's open, high the
// maximum, low the minimum, close the last close, volume the sum. The
// trailing bucket is emitted even if it is still forming.
//
// tf must be an exact multiple of s.TF and must divide one day. Buckets
// start at whole multiples of tf since the Unix epoch, which matches UTC
// session boundaries only up to 1d. Epoch-aligned 3d and 1w buckets would
// start on a Thursday and drift from exchange candles, so they are rejected.
func Aggregate(s model.Series, tf model.Timeframe) (model.Series, error) {
	src, err := s.TF.Duration()
	if err != nil {
		return model.Series{}, fmt.Errorf("resample %s: source: %w", s.Symbol, err)
	}
	dst, err := tf.Duration()
	if err != nil {
		return model.Series{}, fmt.Errorf("resample %s: target: %w", s.Symbol, err)
	}
	if dst < src || dst%src != 0 || day%dst != 0 {
		return model.Series{}, fmt.Errorf("resample %s %s -> %s: %w", s.Symbol, s.TF, tf, model.ErrIncompatibleTimeframe)
	}
	if err := s.Validate(); err != nil {
		return model.Series{}, fmt.Errorf("resample: %w", err)
	}

	out := model.Series{Symbol: s.Symbol, TF: tf}
	if len(s.Candles) == 0 {
		return out, nil
	}
	out.Candles = make([]model.Candle, 0, len(s.Candles)/int(dst/src)+1)

	width := int64(dst / time.Second)
	var (
		cur     model.Candle
		bucket  int64
		started bool
	)
	for _, c := range s.Candles {
		ts := c.TS.Unix()
		b := ts - mod(ts, width) // align to TF boundary

		if started && b != bucket {
			out.Candles = append(out.Candles, cur)
			started = false
		}
		if !started {
			bucket = b
			cur = model.Candle{
				TS:     time.Unix(b, 0).UTC(),
				Open:   c.Open,
				High:   c.High,
				Low:    c.Low,
				Close:  c.Close,
				Volume: c.Volume,
			}
			started = true
			continue
		}

		// same bucket, merge OHLCV
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	out.Candles = append(out.Candles, cur)
	return out, nil
}

// mod is the non-negative remainder, so pre-1970 timestamps align downwards.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
