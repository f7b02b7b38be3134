package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

func TestRow_RoundTrip(t *testing.T) {
	r := &AssessmentResult{
		ID:            uuid.New(),
		Category:      "lifestyle",
		CategoryTitle: bilingual.New("ไลฟ์สไตล์", "Lifestyle"),
		CompletedAt:   time.Date(2026, 4, 4, 8, 30, 0, 0, time.UTC),
		Answers: []scoring.Answer{
			{QuestionID: "sleep_hours", Answer: questionbank.NumberValue(5.5), Score: 3},
			{QuestionID: "habits", Answer: questionbank.ListValue("smoking"), Score: 4},
		},
		TotalScore: 7,
		MaxScore:   19,
		Percentage: 37,
		RiskLevel:  risk.Medium,
		Language:   bilingual.English,
	}
	r.RiskFactors.Set(bilingual.English, []string{"short sleep"})
	r.Recommendations.Set(bilingual.English, []string{"sleep more"})
	r.Summary.Set(bilingual.English, "summary")

	row, err := toRow("user-1", r)
	if err != nil {
		t.Fatalf("toRow: %v", err)
	}
	if row.RiskFactors != nil || row.Summary != nil {
		t.Error("thai columns should be NULL when thai analysis is absent")
	}
	if len(row.RiskFactorsEN) != 1 || row.SummaryEN == nil {
		t.Error("english columns should be filled")
	}

	got, err := fromRow(row)
	if err != nil {
		t.Fatalf("fromRow: %v", err)
	}
	if got.ID != r.ID || got.Category != r.Category || got.RiskLevel != risk.Medium {
		t.Errorf("identity fields lost: %+v", got)
	}
	if got.CategoryTitle.Get(bilingual.Thai) != "ไลฟ์สไตล์" {
		t.Errorf("title = %+v", got.CategoryTitle)
	}
	if len(got.Answers) != 2 || got.Answers[1].Answer.Strings()[0] != "smoking" {
		t.Errorf("answers = %+v", got.Answers)
	}
	if n, ok := got.Answers[0].Answer.Number(); !ok || n != 5.5 {
		t.Errorf("numeric answer = %v", got.Answers[0].Answer)
	}
	if got.RiskFactors.Has(bilingual.Thai) || !got.RiskFactors.Has(bilingual.English) {
		t.Errorf("risk factors presence wrong: %+v", got.RiskFactors)
	}
}

func TestFromRow_UnknownLevel(t *testing.T) {
	got, err := fromRow(&resultRow{ID: uuid.New(), CategoryID: "phq9", RiskLevel: "severe"})
	if err != nil {
		t.Fatalf("fromRow: %v", err)
	}
	if got.RiskLevel != risk.Unknown {
		t.Errorf("expected unknown, got %s", got.RiskLevel)
	}
}

func TestFromRow_LegacyPlainTitle(t *testing.T) {
	got, err := fromRow(&resultRow{CategoryID: "phq9", CategoryTitle: []byte(`"PHQ-9"`), RiskLevel: "low"})
	if err != nil {
		t.Fatalf("fromRow: %v", err)
	}
	if got.CategoryTitle.Get(bilingual.English) != "PHQ-9" {
		t.Errorf("title = %+v", got.CategoryTitle)
	}
}

func TestPGStore_RejectsNonUsers(t *testing.T) {
	s := &PGStore{}
	err := s.Save(context.Background(), auth.Guest(uuid.NewString()), result("phq9", time.Now()))
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	u := auth.User(uuid.NewString())
	err = s.DeleteAll(auth.WithIdentity(context.Background(), auth.User(uuid.NewString())), u)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestCheckReplay(t *testing.T) {
	id := uuid.New()
	owner := uuid.NewString()
	if err := checkReplay(owner, auth.User(owner), id); err != nil {
		t.Errorf("same owner replay: %v", err)
	}
	if err := checkReplay(owner, auth.User(uuid.NewString()), id); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
