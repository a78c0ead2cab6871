package indicator

// SMMA calculates Wilder's smoothed moving average: an EMA with smoothing
// factor 1/period. Seeded with the first value, then
// SMMA = prev + (v - prev) / period.
type SMMA struct {
	period  int
	count   int
	current float64
}

// NewSMMA creates a new SMMA indicator with the given period.
func NewSMMA(period int) *SMMA {
	return &SMMA{period: period}
}

func (s *SMMA) Name() string { return "SMMA" }

func (s *SMMA) Update(v float64) {
	s.count++
	if s.count == 1 {
		s.current = v
		return
	}
	s.current += (v - s.current) / float64(s.period)
}

func (s *SMMA) Value() float64 { return s.current }
func (s *SMMA) Ready() bool    { return s.count >= s.period }

// Reset clears the SMMA state for reuse.
func (s *SMMA) Reset() {
	s.count = 0
	s.current = 0
}

// WilderSeries applies Wilder smoothing over xs.
func WilderSeries(xs []float64, period int) []float64 {
	return run(NewSMMA(period), xs)
}
