package indicator

import "trading-mtfsync/internal/model"

// MomentumSource returns close - avg(avg(highest high, lowest low), SMA(close))
// over window bars. Entries before the first full window are NaN.
func MomentumSource(highs, lows, closes []float64, window int) []float64 {
	hh := HighestSeries(highs, window)
	ll := LowestSeries(lows, window)
	sma := SMASeries(closes, window)
	out := make([]float64, len(closes))
	for i := range closes {
		// NaN propagates through the arithmetic
		out[i] = closes[i] - ((hh[i]+ll[i])/2+sma[i])/2
	}
	return out
}

// SMI is the regression momentum oscillator. At each index with at least
// 2*window+1 prior bars it fits the trailing window source values against
// x = 1..window and takes the fitted value at x = window. Other entries are
// zero.
func SMI(highs, lows, closes []float64, window int) []float64 {
	src := MomentumSource(highs, lows, closes, window)
	out := make([]float64, len(closes))
	for i := 2*window + 1; i < len(closes); i++ {
		v := LinReg(src[i-window+1:i+1], float64(window))
		if !isUndefined(v) {
			out[i] = v
		}
	}
	return out
}

// SqueezeParams configures the Bollinger/Keltner compression indicator.
type SqueezeParams struct {
	BBLength     int
	BBMult       float64
	KCLength     int
	KCMult       float64
	UseTrueRange bool

	// ZeroInSqueeze forces momentum to 0 on squeeze_on bars.
	ZeroInSqueeze bool
}

// Squeeze classifies every bar by comparing the Bollinger band with the
// Keltner channel and computes the regression momentum over KCLength bars,
// extrapolated one step past the fitted window.
//
// A bar is squeeze_on when the band is strictly inside the channel on both
// sides, squeeze_off when strictly outside on both sides, and no_squeeze
// otherwise, including while either envelope lacks lookback.
func Squeeze(highs, lows, closes []float64, p SqueezeParams) ([]float64, []model.SqueezeState) {
	n := len(closes)

	basis := SMASeries(closes, p.BBLength)
	dev := StdDevSeries(closes, p.BBLength)

	var rng []float64
	if p.UseTrueRange {
		rng = TrueRange(highs, lows, closes)
	} else {
		rng = HighLowRange(highs, lows)
	}
	ma := SMASeries(closes, p.KCLength)
	rangeMA := SMASeries(rng, p.KCLength)

	states := make([]model.SqueezeState, n)
	for i := 0; i < n; i++ {
		upperBB := basis[i] + p.BBMult*dev[i]
		lowerBB := basis[i] - p.BBMult*dev[i]
		upperKC := ma[i] + rangeMA[i]*p.KCMult
		lowerKC := ma[i] - rangeMA[i]*p.KCMult

		// comparisons against NaN are false, so undefined bars fall through
		switch {
		case lowerBB > lowerKC && upperBB < upperKC:
			states[i] = model.SqueezeOn
		case lowerBB < lowerKC && upperBB > upperKC:
			states[i] = model.SqueezeOff
		default:
			states[i] = model.NoSqueeze
		}
	}

	src := MomentumSource(highs, lows, closes, p.KCLength)
	mom := zeroFill(RollingLinReg(src, p.KCLength, 1))
	if p.ZeroInSqueeze {
		for i, s := range states {
			if s == model.SqueezeOn {
				mom[i] = 0
			}
		}
	}
	return mom, states
}
