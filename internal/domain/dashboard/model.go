// Package dashboard summarizes an identity's most recent results.
package dashboard

import (
	"time"

	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// DashboardStats is derived on every read and never stored.
type DashboardStats struct {
	TotalAssessments   int                   `json:"total_assessments"`
	TotalAttempts      int                   `json:"total_attempts"`
	LastAssessmentDate *time.Time            `json:"last_assessment_date"`
	RiskLevels         map[string]risk.Level `json:"risk_levels"`
	OverallRisk        risk.Level            `json:"overall_risk"`
	Recommendations    []string              `json:"recommendations"`
	Language           bilingual.Locale      `json:"language"`
}

// maintainHealth is shown when nothing more specific applies.
var maintainHealth = bilingual.New(
	"สุขภาพโดยรวมของคุณอยู่ในเกณฑ์ดี รักษาพฤติกรรมสุขภาพที่ดีต่อไป และทำแบบประเมินซ้ำเป็นระยะ",
	"Your overall health looks good. Keep up your current habits and retake the assessments from time to time.",
)
