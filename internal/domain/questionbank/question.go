package questionbank

import (
	"fmt"

	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// Kind is the input type of a question.
type Kind string

const (
	KindSingleChoice Kind = "single-choice"
	KindMultiChoice  Kind = "multi-choice"
	KindScale        Kind = "scale"
	KindText         Kind = "text"
)

// Option is one selectable answer of a choice question.
type Option struct {
	Value string         `json:"value" yaml:"value"`
	Label bilingual.Text `json:"label" yaml:"label"`
	Score *int           `json:"score,omitempty" yaml:"score,omitempty"`
}

func (o Option) score() int {
	if o.Score == nil {
		return 0
	}
	return *o.Score
}

// Bucket maps an inclusive numeric range to a score.
type Bucket struct {
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Score int     `json:"score" yaml:"score"`
}

// Question is an immutable question bank entry.
type Question struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"type"`
	Prompt   bilingual.Text `json:"prompt"`
	Required bool           `json:"required"`
	Options  []Option       `json:"options,omitempty"`
	Min      *float64       `json:"min,omitempty"`
	Max      *float64       `json:"max,omitempty"`
	Step     *float64       `json:"step,omitempty"`
	Buckets  []Bucket       `json:"-"`

	rule Rule
}

// Score resolves the contribution of v. The error describes a data
// inconsistency; callers treat it as a zero contribution.
func (q *Question) Score(v Value) (int, error) {
	return q.rule.Score(v)
}

// MaxScore is the largest contribution this question can make.
func (q *Question) MaxScore() int {
	return q.rule.MaxScore()
}

// Rule is the scoring rule of one question kind. The implementations are
// the closed set below; newRule is the only constructor.
type Rule interface {
	Score(v Value) (int, error)
	MaxScore() int
	kind() Kind
}

func newRule(q *Question) (Rule, error) {
	switch q.Kind {
	case KindSingleChoice:
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %s: %s needs options", q.ID, q.Kind)
		}
		return singleChoice{options: q.Options}, nil
	case KindMultiChoice:
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %s: %s needs options", q.ID, q.Kind)
		}
		return multiChoice{options: q.Options}, nil
	case KindScale:
		if len(q.Buckets) == 0 {
			return nil, fmt.Errorf("question %s: %s needs buckets", q.ID, q.Kind)
		}
		return scale{buckets: q.Buckets}, nil
	case KindText:
		return text{buckets: q.Buckets}, nil
	}
	return nil, fmt.Errorf("question %s: unknown type %q", q.ID, q.Kind)
}

type singleChoice struct{ options []Option }

func (r singleChoice) kind() Kind { return KindSingleChoice }

func (r singleChoice) Score(v Value) (int, error) {
	vals := v.Strings()
	if len(vals) != 1 {
		return 0, fmt.Errorf("single-choice answer needs exactly one value, got %d", len(vals))
	}
	o, ok := findOption(r.options, vals[0])
	if !ok {
		return 0, fmt.Errorf("no option %q", vals[0])
	}
	return o.score(), nil
}

func (r singleChoice) MaxScore() int {
	top := 0
	for _, o := range r.options {
		if s := o.score(); s > top {
			top = s
		}
	}
	return top
}

type multiChoice struct{ options []Option }

func (r multiChoice) kind() Kind { return KindMultiChoice }

// Score sums the selected options. Unknown values are skipped and reported;
// repeated selections count once.
func (r multiChoice) Score(v Value) (int, error) {
	total := 0
	var missing []string
	seen := make(map[string]bool)
	for _, val := range v.Strings() {
		if seen[val] {
			continue
		}
		seen[val] = true
		o, ok := findOption(r.options, val)
		if !ok {
			missing = append(missing, val)
			continue
		}
		total += o.score()
	}
	if len(missing) > 0 {
		return total, fmt.Errorf("no option(s) %q", missing)
	}
	return total, nil
}

func (r multiChoice) MaxScore() int {
	top := 0
	for _, o := range r.options {
		if s := o.score(); s > 0 {
			top += s
		}
	}
	return top
}

type scale struct{ buckets []Bucket }

func (r scale) kind() Kind { return KindScale }

func (r scale) Score(v Value) (int, error) {
	n, ok := v.Number()
	if !ok {
		return 0, fmt.Errorf("scale answer %q is not numeric", v.String())
	}
	return bucketScore(r.buckets, n)
}

func (r scale) MaxScore() int { return maxBucket(r.buckets) }

// text scores free text by reading it as a number against the buckets.
// Text that is not a number, or a question without buckets, scores 0.
type text struct{ buckets []Bucket }

func (r text) kind() Kind { return KindText }

func (r text) Score(v Value) (int, error) {
	if len(r.buckets) == 0 {
		return 0, nil
	}
	n, ok := v.Number()
	if !ok {
		return 0, nil
	}
	return bucketScore(r.buckets, n)
}

func (r text) MaxScore() int { return maxBucket(r.buckets) }

func findOption(options []Option, value string) (Option, bool) {
	for _, o := range options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

func bucketScore(buckets []Bucket, n float64) (int, error) {
	for _, b := range buckets {
		if n >= b.Min && n <= b.Max {
			return b.Score, nil
		}
	}
	return 0, fmt.Errorf("value %v outside every bucket", n)
}

func maxBucket(buckets []Bucket) int {
	top := 0
	for _, b := range buckets {
		if b.Score > top {
			top = b.Score
		}
	}
	return top
}
