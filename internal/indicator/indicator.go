// Package indicator computes technical indicators over a candle series.
//
// Streaming primitives (EMA, SMMA, SMA, RSI) implement the Indicator
// interface and are fed one value at a time. The series functions in this
// package drive them left to right, so every output is causal: index i only
// depends on inputs 0..i. Compute assembles the full indicator set into a
// model.Frame.
package indicator

import "math"

// Indicator is the interface for all streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "EMA", "SMMA").
	Name() string

	// Update feeds the next value and recalculates.
	Update(v float64)

	// Value returns the current calculated value.
	Value() float64

	// Ready returns true once a full period has been accumulated.
	Ready() bool
}

// undefined marks a series entry that has not accumulated enough lookback.
// Series helpers use NaN internally; Compute zero-fills before publishing.
var undefined = math.NaN()

func isUndefined(v float64) bool { return math.IsNaN(v) }

// zeroFill replaces undefined entries with 0 in place and returns vals.
func zeroFill(vals []float64) []float64 {
	for i, v := range vals {
		if isUndefined(v) {
			vals[i] = 0
		}
	}
	return vals
}

// run feeds xs through ind and returns the value after each update.
func run(ind Indicator, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		ind.Update(x)
		out[i] = ind.Value()
	}
	return out
}
