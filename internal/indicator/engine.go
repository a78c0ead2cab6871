package indicator

import (
	"fmt"
	"strconv"

	"trading-mtfsync/internal/model"
)

// Column names produced by Compute.
const (
	ColADX                 = "adx"
	ColATR                 = "atr"
	ColSMI                 = "smi"
	ColSqueezeMomentum     = "squeeze_momentum"
	ColSqueezeState        = "squeeze_state"
	ColSqueezeStateNumeric = "squeeze_state_numeric"
	ColEMACross            = "ema_cross"
)

// EMAColumn returns the column name of the EMA with the given period.
func EMAColumn(period int) string { return "ema" + strconv.Itoa(period) }

// DistanceColumn returns the name of the close-to-EMA distance column.
func DistanceColumn(period int) string { return "price_vs_ema" + strconv.Itoa(period) }

// RSIColumn returns the name of the RSI column.
func RSIColumn(period int) string { return "rsi" + strconv.Itoa(period) }

// Compute derives the full indicator set for s and returns it as a frame:
// the OHLCV columns followed by every indicator column. Leading entries
// without enough lookback are zero. Compute does not modify s.
func Compute(s model.Series, p Params) (*model.Frame, error) {
	if s.Len() == 0 {
		return nil, fmt.Errorf("compute %s %s: %w", s.Symbol, s.TF, model.ErrEmptySeries)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("compute %s %s: %w", s.Symbol, s.TF, err)
	}

	f := model.NewFrame(s)
	highs, lows, closes := s.Highs(), s.Lows(), s.Closes()

	emas := make(map[int][]float64, len(p.EMAPeriods))
	for _, period := range p.EMAPeriods {
		if _, seen := emas[period]; seen {
			continue
		}
		emas[period] = EMASeries(closes, period)
		if err := f.AddNumeric(EMAColumn(period), emas[period]); err != nil {
			return nil, err
		}
	}

	tr := TrueRange(highs, lows, closes)
	mom, states := Squeeze(highs, lows, closes, p.squeeze())

	labels := make([]string, len(states))
	numeric := make([]float64, len(states))
	for i, st := range states {
		labels[i] = string(st)
		numeric[i] = st.Numeric()
	}

	cols := []struct {
		name string
		vals []float64
	}{
		{ColADX, ADX(highs, lows, closes, p.ADXSmoothing, p.ADXPeriod)},
		{ColATR, ATR(tr, p.ATRPeriod)},
		{ColSMI, SMI(highs, lows, closes, p.SMIPeriod)},
		{ColSqueezeMomentum, mom},
	}
	for _, c := range cols {
		if err := f.AddNumeric(c.name, c.vals); err != nil {
			return nil, err
		}
	}
	if err := f.AddLabel(ColSqueezeState, labels); err != nil {
		return nil, err
	}
	if err := f.AddNumeric(ColSqueezeStateNumeric, numeric); err != nil {
		return nil, err
	}

	if p.hasEMA(p.CrossFast) && p.hasEMA(p.CrossSlow) {
		if err := f.AddNumeric(ColEMACross, crossSeries(emas[p.CrossFast], emas[p.CrossSlow])); err != nil {
			return nil, err
		}
	}
	if p.hasEMA(p.DistanceEMA) {
		if err := f.AddNumeric(DistanceColumn(p.DistanceEMA), distanceSeries(closes, emas[p.DistanceEMA])); err != nil {
			return nil, err
		}
	}
	if p.RSIPeriod > 0 {
		if err := f.AddNumeric(RSIColumn(p.RSIPeriod), RSISeries(closes, p.RSIPeriod)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// crossSeries is +1 where fast > slow, -1 otherwise.
func crossSeries(fast, slow []float64) []float64 {
	out := make([]float64, len(fast))
	for i := range fast {
		if fast[i] > slow[i] {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

// distanceSeries is the percentage distance of close from ema.
func distanceSeries(closes, ema []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if ema[i] == 0 {
			continue
		}
		out[i] = 100 * (closes[i] - ema[i]) / ema[i]
	}
	return out
}
