package mtf

import (
	"trading-mtfsync/internal/indicator"
	"trading-mtfsync/internal/model"
)

// Context flag column names, before the primary suffix.
const (
	FlagTrend        = "trend"
	FlagSMIActive    = "smi_active"
	FlagADXStrong    = "adx_strong"
	FlagEMAAlignment = "ema_alignment"
)

// contextFlags derives 0/1 columns on the primary rows. A flag is skipped
// when one of its inputs is missing from the frame.
func contextFlags(primary *model.Frame, adxStrong float64) []model.Column {
	ema10 := primary.Num(indicator.EMAColumn(10))
	ema55 := primary.Num(indicator.EMAColumn(55))
	ema200 := primary.Num(indicator.EMAColumn(200))
	smi := primary.Num(indicator.ColSMI)
	adx := primary.Num(indicator.ColADX)

	var out []model.Column
	add := func(name string, pred func(i int) bool, inputs ...[]float64) {
		for _, in := range inputs {
			if in == nil {
				return
			}
		}
		vals := make([]float64, primary.Len())
		for i := range vals {
			if pred(i) {
				vals[i] = 1
			}
		}
		out = append(out, model.Column{Name: name, Kind: model.Numeric, Num: vals})
	}

	add(FlagTrend, func(i int) bool { return ema10[i] > ema55[i] }, ema10, ema55)
	add(FlagSMIActive, func(i int) bool { return smi[i] > 0 }, smi)
	add(FlagADXStrong, func(i int) bool { return adx[i] > adxStrong }, adx)
	add(FlagEMAAlignment, func(i int) bool {
		return ema10[i] > ema55[i] && ema55[i] > ema200[i]
	}, ema10, ema55, ema200)
	return out
}
