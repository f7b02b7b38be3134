package dashboard

import (
	"reflect"
	"testing"
	"time"

	"github.com/wellcheck/wellcheck/internal/domain/assessment"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

var t0 = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func res(category string, level risk.Level, at time.Time, enRecs ...string) *assessment.AssessmentResult {
	r := &assessment.AssessmentResult{Category: category, RiskLevel: level, CompletedAt: at}
	if enRecs != nil {
		r.Recommendations.Set(bilingual.English, enRecs)
	}
	return r
}

func latest(rs ...*assessment.AssessmentResult) map[string]*assessment.AssessmentResult {
	return assessment.LatestPerCategory(rs)
}

func testBank(t *testing.T) *questionbank.Bank {
	t.Helper()
	b, err := questionbank.Default()
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return b
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregator{}.Aggregate(nil, bilingual.English)

	if stats.TotalAssessments != 0 || stats.LastAssessmentDate != nil {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.OverallRisk != risk.Unknown {
		t.Errorf("overall risk = %s, want unknown", stats.OverallRisk)
	}
	if len(stats.Recommendations) != 1 || stats.Recommendations[0] != maintainHealth.Get(bilingual.English) {
		t.Errorf("recommendations = %v", stats.Recommendations)
	}
}

func TestAggregate_OverallRiskIsMax(t *testing.T) {
	stats := Aggregator{}.Aggregate(latest(
		res("phq9", risk.Low, t0, "a"),
		res("gad7", risk.High, t0.Add(time.Hour), "b"),
		res("st5", risk.Unknown, t0.Add(2*time.Hour), "c"),
	), bilingual.English)

	if stats.OverallRisk != risk.High {
		t.Errorf("overall = %s, want high", stats.OverallRisk)
	}
	if stats.TotalAssessments != 3 {
		t.Errorf("total = %d", stats.TotalAssessments)
	}
	if !stats.LastAssessmentDate.Equal(t0.Add(2 * time.Hour)) {
		t.Errorf("last date = %v", stats.LastAssessmentDate)
	}
	if stats.RiskLevels["gad7"] != risk.High || stats.RiskLevels["st5"] != risk.Unknown {
		t.Errorf("risk levels = %v", stats.RiskLevels)
	}
}

func TestAggregate_UnknownOnlyStaysUnknown(t *testing.T) {
	stats := Aggregator{}.Aggregate(latest(res("phq9", risk.Unknown, t0)), bilingual.Thai)
	if stats.OverallRisk != risk.Unknown {
		t.Errorf("overall = %s", stats.OverallRisk)
	}
}

func TestAggregate_RecommendationsDeduplicated(t *testing.T) {
	stats := Aggregator{}.Aggregate(latest(
		res("phq9", risk.Medium, t0.Add(time.Hour), "sleep more", "walk daily"),
		res("gad7", risk.Medium, t0, "walk daily ", "breathe"),
	), bilingual.English)

	want := []string{"sleep more", "walk daily", "breathe"}
	if !reflect.DeepEqual(stats.Recommendations, want) {
		t.Errorf("recommendations = %v, want %v", stats.Recommendations, want)
	}
}

func TestAggregate_FallsBackToCategoryAdvice(t *testing.T) {
	bank := testBank(t)
	cat, _ := bank.Category("phq9")
	want := cat.FallbackRecommendations(risk.High, bilingual.Thai)
	if len(want) == 0 {
		t.Fatal("phq9 has no static advice for high")
	}

	stats := Aggregator{Categories: bank}.Aggregate(latest(res("phq9", risk.High, t0)), bilingual.Thai)

	if !reflect.DeepEqual(stats.Recommendations, want) {
		t.Errorf("recommendations = %v, want %v", stats.Recommendations, want)
	}
}

func TestAggregate_AIAdvicePreferred(t *testing.T) {
	stats := Aggregator{Categories: testBank(t)}.Aggregate(latest(res("phq9", risk.High, t0, "see a doctor")), bilingual.English)
	if !reflect.DeepEqual(stats.Recommendations, []string{"see a doctor"}) {
		t.Errorf("recommendations = %v", stats.Recommendations)
	}
}

func TestAggregate_LocaleFallback(t *testing.T) {
	// Only English advice exists; a Thai dashboard still shows it.
	stats := Aggregator{}.Aggregate(latest(res("phq9", risk.Low, t0, "rest")), bilingual.Thai)
	if !reflect.DeepEqual(stats.Recommendations, []string{"rest"}) {
		t.Errorf("recommendations = %v", stats.Recommendations)
	}
	if stats.Language != bilingual.Thai {
		t.Errorf("language = %s", stats.Language)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	in := latest(
		res("phq9", risk.Low, t0, "a", "b"),
		res("gad7", risk.Medium, t0, "c"),
		res("st5", risk.High, t0, "d"),
	)
	first := Aggregator{}.Aggregate(in, bilingual.English)
	for i := 0; i < 20; i++ {
		if got := (Aggregator{}).Aggregate(in, bilingual.English); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got.Recommendations, first.Recommendations)
		}
	}
}
