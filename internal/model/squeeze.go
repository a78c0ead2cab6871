package model

// SqueezeState is the per-bar volatility compression classification.
type SqueezeState string

const (
	SqueezeOn  SqueezeState = "squeeze_on"
	SqueezeOff SqueezeState = "squeeze_off"
	NoSqueeze  SqueezeState = "no_squeeze"
)

// Numeric maps the state to the chart encoding: on=1, off=-1, none=0.
func (s SqueezeState) Numeric() float64 {
	switch s {
	case SqueezeOn:
		return 1
	case SqueezeOff:
		return -1
	default:
		return 0
	}
}
