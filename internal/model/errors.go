package model

import "errors"

var (
	// ErrEmptySeries is returned when a computation receives zero candles.
	ErrEmptySeries = errors.New("empty series")

	// ErrUnsorted is returned when timestamps are not in ascending order.
	ErrUnsorted = errors.New("series not time-ordered")

	// ErrUnknownTimeframe is returned for an unrecognised timeframe identifier.
	ErrUnknownTimeframe = errors.New("unknown timeframe")

	// ErrColumnCollision is returned when two output columns share a name.
	ErrColumnCollision = errors.New("column name collision")

	// ErrIncompatibleTimeframe is returned when a resample target is not a
	// whole multiple of the source timeframe.
	ErrIncompatibleTimeframe = errors.New("incompatible timeframe")
)
