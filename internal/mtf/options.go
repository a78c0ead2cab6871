// Package mtf aligns an indicator frame computed at a coarse (primary)
// timeframe onto a finer (secondary) timeframe. Every secondary row receives
// a copy of the full primary row whose interval contains it, or invalid
// cells when no primary bar covers it.
package mtf

import "trading-mtfsync/internal/model"

// DefaultADXStrongThreshold is the adx level above which the primary trend
// counts as strong.
const DefaultADXStrongThreshold = 25.0

// Options controls naming and optional derived columns.
type Options struct {
	// PrimarySuffix is appended to every primary column name.
	// Empty means the primary timeframe suffix, e.g. "_4h".
	PrimarySuffix string `yaml:"primary_suffix"`

	// QualifySecondary appends SecondarySuffix to every secondary column.
	QualifySecondary bool `yaml:"qualify_secondary"`

	// SecondarySuffix is used when QualifySecondary is set.
	// Empty means the secondary timeframe suffix.
	SecondarySuffix string `yaml:"secondary_suffix"`

	// ContextFlags adds 0/1 trend summary columns derived from the matched
	// primary row.
	ContextFlags bool `yaml:"context_flags"`

	// ADXStrongThreshold drives the adx_strong flag. Zero means the default.
	ADXStrongThreshold float64 `yaml:"adx_strong_threshold"`
}

// DefaultOptions qualifies both sides with their timeframe suffix.
func DefaultOptions() Options {
	return Options{
		QualifySecondary:   true,
		ADXStrongThreshold: DefaultADXStrongThreshold,
	}
}

// resolve fills in the timeframe-derived defaults.
func (o Options) resolve(primary, secondary model.Timeframe) Options {
	if o.PrimarySuffix == "" {
		o.PrimarySuffix = primary.Suffix()
	}
	if !o.QualifySecondary {
		o.SecondarySuffix = ""
	} else if o.SecondarySuffix == "" {
		o.SecondarySuffix = secondary.Suffix()
	}
	if o.ADXStrongThreshold == 0 {
		o.ADXStrongThreshold = DefaultADXStrongThreshold
	}
	return o
}
