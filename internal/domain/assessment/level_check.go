package assessment

import (
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
)

// LevelCheck flags stored results whose risk level does not follow from
// their score under the category's current threshold table. Mismatches
// are logged and the stored level is returned unchanged.
type LevelCheck struct {
	bank   *questionbank.Bank
	logger zerolog.Logger
}

func NewLevelCheck(bank *questionbank.Bank, logger zerolog.Logger) *LevelCheck {
	return &LevelCheck{
		bank:   bank,
		logger: logger.With().Str("component", "level_check").Logger(),
	}
}

// Check reports whether r's level matches its score. A nil check and
// categories missing from the bank always pass.
func (c *LevelCheck) Check(r *AssessmentResult) bool {
	if c == nil || r == nil {
		return true
	}
	cat, ok := c.bank.Category(r.Category)
	if !ok {
		return true
	}
	if risk.Consistent(cat.Thresholds, r.TotalScore, r.MaxScore, r.RiskLevel) {
		return true
	}
	c.logger.Warn().
		Str("result_id", r.ID.String()).
		Str("category", r.Category).
		Int("total_score", r.TotalScore).
		Int("max_score", r.MaxScore).
		Str("risk_level", string(r.RiskLevel)).
		Str("expected", string(cat.Classify(r.TotalScore).Level)).
		Msg("stored risk level does not match score")
	return false
}
