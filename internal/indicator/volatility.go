package indicator

import "math"

// TrueRange returns max(h-l, |h-prevClose|, |l-prevClose|) per bar.
// Bar 0 has no previous close and uses h-l.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(highs))
	for i := range highs {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// HighLowRange returns h-l per bar.
func HighLowRange(highs, lows []float64) []float64 {
	out := make([]float64, len(highs))
	for i := range highs {
		out[i] = highs[i] - lows[i]
	}
	return out
}

// ATR is the simple moving average of the true range over period bars.
// The first period-1 entries are zero.
func ATR(tr []float64, period int) []float64 {
	return zeroFill(SMASeries(tr, period))
}
