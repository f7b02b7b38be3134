// Package scoring turns a set of answers into a numeric score and risk
// tier using the question bank. Everything here is deterministic and
// never fails on bad data: an answer that cannot be scored contributes
// zero and is reported as a warning.
package scoring

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
)

// Answer is one question's response with its resolved score.
type Answer struct {
	QuestionID string             `json:"question_id" validate:"required"`
	Answer     questionbank.Value `json:"answer"`
	Score      int                `json:"score"`
}

// Result is the outcome of Compute.
type Result struct {
	Answers    []Answer `json:"answers"`
	TotalScore int      `json:"total_score"`
	MaxScore   int      `json:"max_score"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Evaluation is a Result classified against its category's table.
type Evaluation struct {
	Result
	Percentage int        `json:"percentage"`
	RiskLevel  risk.Level `json:"risk_level"`
}

// Calculator scores answers. The zero value is usable and logs nothing.
type Calculator struct {
	logger zerolog.Logger
}

// NewCalculator creates a Calculator that reports soft warnings to logger.
func NewCalculator(logger zerolog.Logger) *Calculator {
	return &Calculator{logger: logger.With().Str("component", "scoring").Logger()}
}

// Compute resolves each answer against the category and sums them. When
// the same question is answered twice the later answer wins. MaxScore
// covers every question in the category, answered or not.
func (c *Calculator) Compute(cat *questionbank.Category, answers []Answer) Result {
	res := Result{MaxScore: cat.MaxScore()}

	index := make(map[string]int, len(answers))
	for _, a := range answers {
		if i, ok := index[a.QuestionID]; ok {
			res.Answers[i].Answer = a.Answer
			continue
		}
		index[a.QuestionID] = len(res.Answers)
		res.Answers = append(res.Answers, Answer{QuestionID: a.QuestionID, Answer: a.Answer})
	}

	for i := range res.Answers {
		a := &res.Answers[i]
		score, err := ScoreAnswer(cat, a.QuestionID, a.Answer)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			c.logger.Warn().
				Str("category", cat.ID).
				Str("question_id", a.QuestionID).
				Err(err).
				Msg("answer contributes zero")
		}
		a.Score = score
		res.TotalScore += score
	}
	return res
}

// Evaluate computes and classifies in one step.
func (c *Calculator) Evaluate(cat *questionbank.Category, answers []Answer) Evaluation {
	res := c.Compute(cat, answers)
	cl := cat.Classify(res.TotalScore)
	return Evaluation{Result: res, Percentage: cl.Percentage, RiskLevel: cl.Level}
}

// ScoreAnswer resolves a single answer. The returned score is always the
// contribution to use; a non-nil error explains why it fell back to zero
// (or, for a multi-choice, why part of the selection was ignored).
func ScoreAnswer(cat *questionbank.Category, questionID string, v questionbank.Value) (int, error) {
	q, ok := cat.Question(questionID)
	if !ok {
		return 0, fmt.Errorf("%w: unknown question %q in %s", ErrInvalidAnswer, questionID, cat.ID)
	}
	score, err := q.Score(v)
	if err != nil {
		return score, fmt.Errorf("%w: %s: %v", ErrInvalidAnswer, questionID, err)
	}
	return score, nil
}

// MissingRequired lists required questions of cat that have no answer.
func MissingRequired(cat *questionbank.Category, answers []Answer) []string {
	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		if !a.Answer.IsZero() {
			answered[a.QuestionID] = true
		}
	}
	var missing []string
	for _, q := range cat.Questions {
		if q.Required && !answered[q.ID] {
			missing = append(missing, q.ID)
		}
	}
	return missing
}
