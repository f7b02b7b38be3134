// Package risk maps scores onto risk tiers through fixed threshold tables.
//
// Classification is a pure table lookup. Categories whose published
// clinical instruments define raw-score cutoffs (AUDIT, PHQ-9, GAD-7, ST-5)
// carry their own table; everything else uses DefaultThresholds over the
// percentage.
package risk

import (
	"fmt"
	"math"
)

// Mode selects which number a threshold table is read against.
type Mode string

const (
	ModePercentage Mode = "percentage"
	ModeRaw        Mode = "raw"
)

// Band assigns Level to every value up to and including UpTo that is above
// the previous band's UpTo. The last band also catches values above its UpTo.
type Band struct {
	UpTo  int   `yaml:"up_to" json:"up_to"`
	Level Level `yaml:"level" json:"level"`
}

// Thresholds is a category-parameterized classification table.
type Thresholds struct {
	Mode  Mode   `yaml:"mode" json:"mode"`
	Bands []Band `yaml:"bands" json:"bands"`
}

// Classification is the deterministic outcome for one attempt.
type Classification struct {
	Percentage int   `json:"percentage"`
	Level      Level `json:"risk_level"`
}

// DefaultThresholds is the category-agnostic percentage table.
var DefaultThresholds = Thresholds{
	Mode: ModePercentage,
	Bands: []Band{
		{UpTo: 25, Level: Low},
		{UpTo: 50, Level: Medium},
		{UpTo: 75, Level: High},
		{UpTo: 100, Level: VeryHigh},
	},
}

// AuditThresholds are the WHO AUDIT zones over the raw score out of 40.
var AuditThresholds = Thresholds{
	Mode: ModeRaw,
	Bands: []Band{
		{UpTo: 7, Level: Low},
		{UpTo: 15, Level: Medium},
		{UpTo: 19, Level: High},
		{UpTo: 40, Level: VeryHigh},
	},
}

// Validate checks that bands are non-empty, strictly ascending and use
// concrete tiers.
func (t Thresholds) Validate() error {
	if t.Mode != ModePercentage && t.Mode != ModeRaw {
		return fmt.Errorf("unknown threshold mode %q", t.Mode)
	}
	if len(t.Bands) == 0 {
		return fmt.Errorf("threshold table has no bands")
	}
	for i, b := range t.Bands {
		if !b.Level.Valid() || b.Level == Unknown {
			return fmt.Errorf("band %d: invalid level %q", i, b.Level)
		}
		if i > 0 && b.UpTo <= t.Bands[i-1].UpTo {
			return fmt.Errorf("band %d: up_to %d not above previous %d", i, b.UpTo, t.Bands[i-1].UpTo)
		}
	}
	return nil
}

// Lookup returns the tier for value.
func (t Thresholds) Lookup(value int) Level {
	if len(t.Bands) == 0 {
		return Unknown
	}
	for _, b := range t.Bands {
		if value <= b.UpTo {
			return b.Level
		}
	}
	return t.Bands[len(t.Bands)-1].Level
}

// Percentage returns round(total/max*100) clamped to [0,100]. A
// non-positive max yields 0.
func Percentage(total, max int) int {
	if max <= 0 {
		return 0
	}
	p := int(math.Round(float64(total) / float64(max) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Classify uses DefaultThresholds.
func Classify(total, max int) Classification {
	return ClassifyWith(DefaultThresholds, total, max)
}

// ClassifyWith classifies against t. A non-positive max means the category
// definition is malformed: the percentage is 0 and the tier Unknown.
func ClassifyWith(t Thresholds, total, max int) Classification {
	pct := Percentage(total, max)
	if max <= 0 {
		return Classification{Percentage: 0, Level: Unknown}
	}
	value := pct
	if t.Mode == ModeRaw {
		value = total
	}
	return Classification{Percentage: pct, Level: t.Lookup(value)}
}

// Consistent reports whether level is what t yields for (total, max).
func Consistent(t Thresholds, total, max int, level Level) bool {
	return ClassifyWith(t, total, max).Level == level
}
