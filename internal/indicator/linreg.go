package indicator

// LinReg fits y against x = 1..len(y) by ordinary least squares and returns
// the fitted line's value at x = at. A single observation has no slope and
// returns y[0]. The result is NaN if y contains an undefined entry.
func LinReg(y []float64, at float64) float64 {
	n := float64(len(y))
	if len(y) == 0 {
		return undefined
	}
	var sx, sy, sxy, sxx float64
	for i, v := range y {
		if isUndefined(v) {
			return undefined
		}
		x := float64(i + 1)
		sx += x
		sy += v
		sxy += x * v
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return sy / n
	}
	slope := (n*sxy - sx*sy) / den
	intercept := (sy - slope*sx) / n
	return intercept + slope*at
}

// RollingLinReg evaluates LinReg over each trailing window of length window,
// at x = window + offset. Entries whose window is incomplete or touches an
// undefined input are NaN.
func RollingLinReg(y []float64, window int, offset float64) []float64 {
	out := make([]float64, len(y))
	at := float64(window) + offset
	for i := range y {
		if i < window-1 {
			out[i] = undefined
			continue
		}
		out[i] = LinReg(y[i-window+1:i+1], at)
	}
	return out
}
