package questionbank

import (
	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// Category is one questionnaire.
type Category struct {
	ID              string                                       `json:"id"`
	Title           bilingual.Text                               `json:"title"`
	Description     bilingual.Text                               `json:"description"`
	Questions       []*Question                                  `json:"questions"`
	Thresholds      risk.Thresholds                              `json:"thresholds"`
	Recommendations map[risk.Level]bilingual.Bilingual[[]string] `json:"-"`

	byID     map[string]*Question
	maxScore int
}

// Question returns the question with the given id.
func (c *Category) Question(id string) (*Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// MaxScore is the sum of every question's maximum contribution,
// independent of which questions an attempt answered.
func (c *Category) MaxScore() int {
	return c.maxScore
}

// Classify applies this category's threshold table.
func (c *Category) Classify(total int) risk.Classification {
	return risk.ClassifyWith(c.Thresholds, total, c.maxScore)
}

// FallbackRecommendations returns the static advice for level in loc.
func (c *Category) FallbackRecommendations(level risk.Level, loc bilingual.Locale) []string {
	return c.Recommendations[level].Get(loc)
}
