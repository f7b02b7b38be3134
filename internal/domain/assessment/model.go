package assessment

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// AssessmentResult is the record of one submitted questionnaire. It is
// never changed after creation; a retake produces a new result.
type AssessmentResult struct {
	ID              uuid.UUID                     `json:"id"`
	Category        string                        `json:"category"`
	CategoryTitle   bilingual.Text                `json:"category_title"`
	CompletedAt     time.Time                     `json:"completed_at"`
	Answers         []scoring.Answer              `json:"answers"`
	TotalScore      int                           `json:"total_score"`
	MaxScore        int                           `json:"max_score"`
	Percentage      int                           `json:"percentage"`
	RiskLevel       risk.Level                    `json:"risk_level"`
	Language        bilingual.Locale              `json:"language"`
	RiskFactors     bilingual.Bilingual[[]string] `json:"risk_factors"`
	Recommendations bilingual.Bilingual[[]string] `json:"recommendations"`
	Summary         bilingual.Text                `json:"summary"`
}

// HasAnalysis reports whether any AI-written text is present.
func (r *AssessmentResult) HasAnalysis() bool {
	return !r.Summary.IsEmpty() || !r.RiskFactors.IsEmpty() || !r.Recommendations.IsEmpty()
}

// State is a step of the attempt lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
	StateAnalyzed   State = "analyzed"
	StatePersisted  State = "persisted"
)

// Attempt carries one questionnaire from first answer to stored result.
type Attempt struct {
	ID        uuid.UUID                 `json:"id"`
	Owner     auth.Identity             `json:"-"`
	Category  string                    `json:"category"`
	Language  bilingual.Locale          `json:"language"`
	Answers   map[string]scoring.Answer `json:"answers"`
	State     State                     `json:"state"`
	Result    *AssessmentResult         `json:"result,omitempty"`
	LastError string                    `json:"last_error,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// AnswerList returns the answers ordered by question id so scoring sees
// a stable order.
func (a *Attempt) AnswerList() []scoring.Answer {
	out := make([]scoring.Answer, 0, len(a.Answers))
	for _, ans := range a.Answers {
		out = append(out, ans)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

func (a *Attempt) clone() *Attempt {
	c := *a
	c.Answers = make(map[string]scoring.Answer, len(a.Answers))
	for k, v := range a.Answers {
		c.Answers[k] = v
	}
	return &c
}

// SortNewestFirst orders results by completion time, newest first, with
// the category id as a tiebreak.
func SortNewestFirst(results []*AssessmentResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].CompletedAt.Equal(results[j].CompletedAt) {
			return results[i].CompletedAt.After(results[j].CompletedAt)
		}
		return results[i].Category < results[j].Category
	})
}

// LatestPerCategory keeps the most recent result of every category.
func LatestPerCategory(results []*AssessmentResult) map[string]*AssessmentResult {
	out := make(map[string]*AssessmentResult)
	for _, r := range results {
		if cur, ok := out[r.Category]; !ok || r.CompletedAt.After(cur.CompletedAt) {
			out[r.Category] = r
		}
	}
	return out
}
