// Package analysis produces the qualitative, AI-written part of an
// assessment: risk factors, recommendations and a summary, once per
// language. It never decides the risk tier.
package analysis

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

var (
	// ErrAnalysisDisabled is returned when no model is configured.
	ErrAnalysisDisabled = errors.New("analysis disabled")
	// ErrUpstream wraps transport and non-2xx failures of the model API.
	ErrUpstream = errors.New("analysis upstream failure")
	// ErrSchema marks a model reply that does not match Payload.
	ErrSchema = errors.New("analysis reply does not match schema")
)

// Payload is the reply schema the model must produce.
type Payload struct {
	RiskLevel       string   `json:"riskLevel" validate:"required,oneof=low moderate high critical"`
	RiskFactors     []string `json:"riskFactors" validate:"dive,required"`
	Recommendations []string `json:"recommendations" validate:"dive,required"`
	Summary         string   `json:"summary" validate:"required"`
}

// Request is what one analysis is generated from. The score fields give
// the model context; they are already final.
type Request struct {
	Category   *questionbank.Category
	Answers    []scoring.Answer
	TotalScore int
	MaxScore   int
	RiskLevel  risk.Level
}

// Analyzer generates one language's analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req Request, loc bilingual.Locale) (*Payload, error)
}

// Disabled is the Analyzer used when no model is configured.
type Disabled struct{}

func (Disabled) Analyze(context.Context, Request, bilingual.Locale) (*Payload, error) {
	return nil, ErrAnalysisDisabled
}

// Outcome holds both languages' results. A failed language has a nil
// payload and a non-nil error; the other language is unaffected.
type Outcome struct {
	Th    *Payload
	En    *Payload
	ThErr error
	EnErr error
}

// Failed reports whether neither language produced a payload.
func (o Outcome) Failed() bool {
	return o.Th == nil && o.En == nil
}

// AnalyzeBilingual runs the Thai and English analyses concurrently. One
// language failing does not cancel the other.
func AnalyzeBilingual(ctx context.Context, a Analyzer, req Request) Outcome {
	var (
		out Outcome
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Th, out.ThErr = a.Analyze(ctx, req, bilingual.Thai)
		return nil
	})
	g.Go(func() error {
		out.En, out.EnErr = a.Analyze(ctx, req, bilingual.English)
		return nil
	})
	_ = g.Wait()
	return out
}
