package model

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is a bar-interval identifier such as "1h" or "4h".
type Timeframe string

var timeframeDurations = map[Timeframe]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseTimeframe normalises and validates an identifier ("4H" -> "4h").
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownTimeframe)
	}
	return tf, nil
}

// Duration returns the nominal bar duration.
func (tf Timeframe) Duration() (time.Duration, error) {
	d, ok := timeframeDurations[tf]
	if !ok {
		return 0, fmt.Errorf("%q: %w", string(tf), ErrUnknownTimeframe)
	}
	return d, nil
}

// Suffix returns the column suffix for this timeframe, e.g. "_4h".
func (tf Timeframe) Suffix() string {
	return "_" + string(tf)
}

func (tf Timeframe) String() string { return string(tf) }
