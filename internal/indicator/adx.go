package indicator

import "math"

// DirectionalMovement returns +DM and -DM per bar. An up-move counts only if
// it is positive and larger than the down-move, and vice versa. Bar 0 has
// no previous bar and yields zero for both.
func DirectionalMovement(highs, lows []float64) (plus, minus []float64) {
	n := len(highs)
	plus = make([]float64, n)
	minus = make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plus[i] = up
		}
		if down > up && down > 0 {
			minus[i] = down
		}
	}
	return plus, minus
}

// ADX computes the Average Directional Index in two stages.
// True range and ±DM are Wilder-smoothed over smoothing bars; the resulting
// DX series is Wilder-smoothed over period bars.
func ADX(highs, lows, closes []float64, smoothing, period int) []float64 {
	n := len(highs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	tr := WilderSeries(TrueRange(highs, lows, closes), smoothing)
	plusDM, minusDM := DirectionalMovement(highs, lows)
	plusDM = WilderSeries(plusDM, smoothing)
	minusDM = WilderSeries(minusDM, smoothing)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		var plusDI, minusDI float64
		if tr[i] != 0 {
			plusDI = 100 * plusDM[i] / tr[i]
			minusDI = 100 * minusDM[i] / tr[i]
		}
		diff := math.Abs(plusDI - minusDI)
		sum := plusDI + minusDI
		if sum == 0 {
			dx[i] = diff
			continue
		}
		dx[i] = 100 * diff / sum
	}

	copy(out, WilderSeries(dx, period))
	return out
}
