package dashboard

import (
	"strings"

	"github.com/wellcheck/wellcheck/internal/domain/assessment"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// Aggregator builds DashboardStats. Categories supplies the static advice
// used when a result has no AI recommendations; it may be nil.
type Aggregator struct {
	Categories *questionbank.Bank
}

// Aggregate summarizes the latest result of each category in loc. It is
// pure: the same input gives the same output.
func (a Aggregator) Aggregate(latest map[string]*assessment.AssessmentResult, loc bilingual.Locale) DashboardStats {
	if !loc.Valid() {
		loc = bilingual.Default
	}
	results := make([]*assessment.AssessmentResult, 0, len(latest))
	for _, r := range latest {
		if r != nil {
			results = append(results, r)
		}
	}
	assessment.SortNewestFirst(results)

	stats := DashboardStats{
		TotalAssessments: len(results),
		RiskLevels:       make(map[string]risk.Level, len(results)),
		OverallRisk:      risk.Unknown,
		Recommendations:  []string{},
		Language:         loc,
	}

	seen := make(map[string]bool)
	for _, r := range results {
		stats.RiskLevels[r.Category] = r.RiskLevel
		stats.OverallRisk = risk.Max(stats.OverallRisk, r.RiskLevel)

		if stats.LastAssessmentDate == nil || r.CompletedAt.After(*stats.LastAssessmentDate) {
			t := r.CompletedAt
			stats.LastAssessmentDate = &t
		}

		for _, rec := range a.recommendations(r, loc) {
			key := strings.TrimSpace(rec)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			stats.Recommendations = append(stats.Recommendations, key)
		}
	}

	if len(stats.Recommendations) == 0 {
		stats.Recommendations = append(stats.Recommendations, maintainHealth.Get(loc))
	}
	return stats
}

// recommendations prefers the result's AI advice and falls back to the
// category's static advice for its risk level.
func (a Aggregator) recommendations(r *assessment.AssessmentResult, loc bilingual.Locale) []string {
	if recs := r.Recommendations.Get(loc); len(recs) > 0 {
		return recs
	}
	if a.Categories == nil {
		return nil
	}
	cat, ok := a.Categories.Category(r.Category)
	if !ok {
		return nil
	}
	return cat.FallbackRecommendations(r.RiskLevel, loc)
}
