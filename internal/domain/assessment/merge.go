package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/internal/domain/analysis"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// Base is the deterministic part of a result.
type Base struct {
	ID          uuid.UUID
	Category    *questionbank.Category
	Evaluation  scoring.Evaluation
	Language    bilingual.Locale
	CompletedAt time.Time
}

// Merge builds the result from the deterministic base and the two
// independently generated analyses. Either analysis may be nil; its
// language's qualitative fields are then left empty. The risk level
// always comes from the base.
func Merge(base Base, th, en *analysis.Payload) *AssessmentResult {
	r := &AssessmentResult{
		ID:            base.ID,
		Category:      base.Category.ID,
		CategoryTitle: base.Category.Title,
		CompletedAt:   base.CompletedAt,
		Answers:       base.Evaluation.Answers,
		TotalScore:    base.Evaluation.TotalScore,
		MaxScore:      base.Evaluation.MaxScore,
		Percentage:    base.Evaluation.Percentage,
		RiskLevel:     base.Evaluation.RiskLevel,
		Language:      base.Language,
	}
	apply := func(loc bilingual.Locale, p *analysis.Payload) {
		if p == nil {
			return
		}
		r.RiskFactors.Set(loc, nonNil(p.RiskFactors))
		r.Recommendations.Set(loc, nonNil(p.Recommendations))
		r.Summary.Set(loc, p.Summary)
	}
	apply(bilingual.Thai, th)
	apply(bilingual.English, en)
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
