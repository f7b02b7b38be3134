package risk

import "fmt"

// Level is a discrete risk tier.
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	VeryHigh Level = "very-high"
	Unknown  Level = "unknown"
)

var severity = map[Level]int{
	Unknown:  0,
	Low:      1,
	Medium:   2,
	High:     3,
	VeryHigh: 4,
}

// Valid reports whether l is one of the known tiers, including Unknown.
func (l Level) Valid() bool {
	_, ok := severity[l]
	return ok
}

// Severity orders tiers: unknown < low < medium < high < very-high.
// Unrecognized values rank with unknown.
func (l Level) Severity() int {
	return severity[l]
}

// Max returns the more severe of a and b.
func Max(a, b Level) Level {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// ParseLevel validates a stored tier. Unrecognized values map to Unknown.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return Unknown, fmt.Errorf("unrecognized risk level %q", s)
	}
	return l, nil
}

// FromAdvisory maps the vocabulary the AI analysis uses
// (low, moderate, high, critical) onto tiers. It is only used for
// logging disagreement; the persisted tier never comes from here.
func FromAdvisory(s string) Level {
	switch s {
	case "low":
		return Low
	case "moderate":
		return Medium
	case "high":
		return High
	case "critical":
		return VeryHigh
	}
	return Unknown
}
