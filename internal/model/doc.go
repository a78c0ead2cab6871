// Package model holds the shared data types of the pipeline: candles,
// timeframe identifiers, and the Frame column store that carries indicator
// and cross-timeframe context columns.
package model
