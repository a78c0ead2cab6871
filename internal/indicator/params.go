package indicator

import (
	"errors"
	"fmt"
)

// Params is the full parameter set of one Compute call.
type Params struct {
	EMAPeriods []int `yaml:"ema_periods"`

	// ADXPeriod smooths the final DX series; ADXSmoothing smooths true range
	// and directional movement. They are deliberately separate.
	ADXPeriod    int `yaml:"adx_period"`
	ADXSmoothing int `yaml:"adx_smoothing"`

	ATRPeriod int `yaml:"atr_period"`
	SMIPeriod int `yaml:"smi_period"`

	BBLength     int     `yaml:"bb_length"`
	BBMult       float64 `yaml:"bb_mult"`
	KCLength     int     `yaml:"kc_length"`
	KCMult       float64 `yaml:"kc_mult"`
	UseTrueRange bool    `yaml:"use_true_range"`

	// ZeroMomentumInSqueeze selects the alternate squeeze mode.
	ZeroMomentumInSqueeze bool `yaml:"zero_momentum_in_squeeze"`

	CrossFast   int `yaml:"cross_fast"`
	CrossSlow   int `yaml:"cross_slow"`
	DistanceEMA int `yaml:"distance_ema"`

	// RSIPeriod 0 disables the rsi column.
	RSIPeriod int `yaml:"rsi_period"`
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		EMAPeriods:   []int{10, 55, 200},
		ADXPeriod:    14,
		ADXSmoothing: 14,
		ATRPeriod:    14,
		SMIPeriod:    18,
		BBLength:     18,
		BBMult:       2.0,
		KCLength:     20,
		KCMult:       1.5,
		UseTrueRange: true,
		CrossFast:    10,
		CrossSlow:    55,
		DistanceEMA:  55,
	}
}

// Validate rejects non-positive windows.
func (p Params) Validate() error {
	var errs []error
	for _, ep := range p.EMAPeriods {
		if ep <= 0 {
			errs = append(errs, fmt.Errorf("ema period %d must be > 0", ep))
		}
	}
	check := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %d", name, v))
		}
	}
	check("adx_period", p.ADXPeriod)
	check("adx_smoothing", p.ADXSmoothing)
	check("atr_period", p.ATRPeriod)
	check("smi_period", p.SMIPeriod)
	check("bb_length", p.BBLength)
	check("kc_length", p.KCLength)
	if p.RSIPeriod < 0 {
		errs = append(errs, fmt.Errorf("rsi_period must be >= 0, got %d", p.RSIPeriod))
	}
	return errors.Join(errs...)
}

func (p Params) squeeze() SqueezeParams {
	return SqueezeParams{
		BBLength:      p.BBLength,
		BBMult:        p.BBMult,
		KCLength:      p.KCLength,
		KCMult:        p.KCMult,
		UseTrueRange:  p.UseTrueRange,
		ZeroInSqueeze: p.ZeroMomentumInSqueeze,
	}
}

func (p Params) hasEMA(period int) bool {
	for _, ep := range p.EMAPeriods {
		if ep == period {
			return true
		}
	}
	return false
}
