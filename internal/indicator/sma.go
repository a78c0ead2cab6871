package indicator

import "math"

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer; the window is also exposed for
// standard deviation.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(v float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = v
	s.sum += v
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

// Value returns the window mean, or NaN until the window is full.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return undefined
	}
	return s.current
}

func (s *SMA) Ready() bool { return s.count >= s.period }

// StdDev returns the sample standard deviation (n-1) of the window, or NaN
// until the window is full. A period of 1 has no sample deviation.
func (s *SMA) StdDev() float64 {
	if !s.Ready() || s.period < 2 {
		return undefined
	}
	mean := s.sum / float64(s.period)
	var ss float64
	for _, v := range s.buf {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(s.period-1))
}

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	s.current = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// SMASeries returns the rolling mean of xs; entries before the first full
// window are NaN.
func SMASeries(xs []float64, period int) []float64 {
	return run(NewSMA(period), xs)
}

// StdDevSeries returns the rolling sample standard deviation of xs; entries
// before the first full window are NaN.
func StdDevSeries(xs []float64, period int) []float64 {
	sma := NewSMA(period)
	out := make([]float64, len(xs))
	for i, x := range xs {
		sma.Update(x)
		out[i] = sma.StdDev()
	}
	return out
}

// HighestSeries returns the rolling maximum of xs over period bars; entries
// before the first full window are NaN.
func HighestSeries(xs []float64, period int) []float64 {
	return rollingExtreme(xs, period, func(a, b float64) bool { return a > b })
}

// LowestSeries returns the rolling minimum of xs over period bars; entries
// before the first full window are NaN.
func LowestSeries(xs []float64, period int) []float64 {
	return rollingExtreme(xs, period, func(a, b float64) bool { return a < b })
}

func rollingExtreme(xs []float64, period int, better func(a, b float64) bool) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < period-1 {
			out[i] = undefined
			continue
		}
		best := xs[i-period+1]
		for _, v := range xs[i-period+2 : i+1] {
			if better(v, best) {
				best = v
			}
		}
		out[i] = best
	}
	return out
}
