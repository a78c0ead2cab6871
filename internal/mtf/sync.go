package mtf

import (
	"errors"
	"fmt"
	"time"

	"trading-mtfsync/internal/model"
)

// Stats summarises one synchronization.
type Stats struct {
	Rows    int `json:"rows"`
	Matched int `json:"matched"`
	Missing int `json:"missing"`
}

// Result is the synchronized frame plus bookkeeping.
type Result struct {
	Frame *model.Frame

	// Matched[i] is the primary row copied into row i, or -1.
	Matched []int
	Stats   Stats

	PrimaryTF        model.Timeframe
	SecondaryTF      model.Timeframe
	PrimaryColumns   []string
	SecondaryColumns []string
	FlagColumns      []string
}

// Synchronize projects every primary column onto the secondary rows.
//
// Both frames must be ordered by time. The result is a new frame; neither
// input is modified.
func Synchronize(primary, secondary *model.Frame, opts Options) (*Result, error) {
	if secondary == nil || secondary.Len() == 0 {
		return nil, fmt.Errorf("synchronize: secondary: %w", model.ErrEmptySeries)
	}
	if primary == nil {
		return nil, errors.New("synchronize: nil primary frame")
	}
	d, err := primary.TF.Duration()
	if err != nil {
		return nil, fmt.Errorf("synchronize: primary: %w", err)
	}
	if err := checkOrdered("primary", primary.Times); err != nil {
		return nil, fmt.Errorf("synchronize: %w", err)
	}
	if err := checkOrdered("secondary", secondary.Times); err != nil {
		return nil, fmt.Errorf("synchronize: %w", err)
	}
	opts = opts.resolve(primary.TF, secondary.TF)

	matched := match(primary.Times, secondary.Times, d)

	out := &model.Frame{
		Symbol: secondary.Symbol,
		TF:     secondary.TF,
		Times:  append([]time.Time(nil), secondary.Times...),
	}
	res := &Result{
		Frame:       out,
		Matched:     matched,
		PrimaryTF:   primary.TF,
		SecondaryTF: secondary.TF,
	}

	for _, c := range secondary.Columns {
		name := c.Name + opts.SecondarySuffix
		if err := out.Add(copyColumn(c, name)); err != nil {
			return nil, fmt.Errorf("synchronize: %w", err)
		}
		res.SecondaryColumns = append(res.SecondaryColumns, name)
	}
	for _, c := range primary.Columns {
		name := c.Name + opts.PrimarySuffix
		if err := out.Add(gather(c, name, matched)); err != nil {
			return nil, fmt.Errorf("synchronize: %w", err)
		}
		res.PrimaryColumns = append(res.PrimaryColumns, name)
	}
	if opts.ContextFlags {
		for _, fc := range contextFlags(primary, opts.ADXStrongThreshold) {
			name := fc.Name + opts.PrimarySuffix
			if err := out.Add(gather(fc, name, matched)); err != nil {
				return nil, fmt.Errorf("synchronize: %w", err)
			}
			res.FlagColumns = append(res.FlagColumns, name)
		}
	}

	res.Stats.Rows = len(matched)
	for _, j := range matched {
		if j >= 0 {
			res.Stats.Matched++
		}
	}
	res.Stats.Missing = res.Stats.Rows - res.Stats.Matched
	return res, nil
}

func copyColumn(c model.Column, name string) model.Column {
	out := model.Column{Name: name, Kind: c.Kind}
	if c.Kind == model.Label {
		out.Text = append([]string(nil), c.Text...)
	} else {
		out.Num = append([]float64(nil), c.Num...)
	}
	if c.Valid != nil {
		out.Valid = append([]bool(nil), c.Valid...)
	}
	return out
}

// gather builds a secondary-aligned column by copying src[matched[i]].
// Rows without a match, or whose source cell is invalid, are invalid.
func gather(src model.Column, name string, matched []int) model.Column {
	n := len(matched)
	out := model.Column{Name: name, Kind: src.Kind}
	if src.Kind == model.Label {
		out.Text = make([]string, n)
	} else {
		out.Num = make([]float64, n)
	}

	valid := make([]bool, n)
	allValid := true
	for i, j := range matched {
		if j < 0 || !src.IsValid(j) {
			allValid = false
			continue
		}
		valid[i] = true
		if src.Kind == model.Label {
			out.Text[i] = src.Text[j]
		} else {
			out.Num[i] = src.Num[j]
		}
	}
	if !allValid {
		out.Valid = valid
	}
	return out
}
