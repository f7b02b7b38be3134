package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/internal/platform/db"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// PGStore keeps signed-in users' results in assessment_results. Writes
// are inserts only; saving an id that is already stored is a no-op.
type PGStore struct {
	pool  *pgxpool.Pool
	check *LevelCheck
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// SetLevelCheck makes reads verify each row's risk level.
func (s *PGStore) SetLevelCheck(c *LevelCheck) { s.check = c }

func (s *PGStore) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, s.pool)
}

// resultRow mirrors one assessment_results row.
type resultRow struct {
	ID                uuid.UUID
	UserID            string
	CategoryID        string
	CategoryTitle     []byte
	Answers           []byte
	TotalScore        int
	MaxScore          int
	Percentage        int
	RiskLevel         string
	Language          string
	RiskFactors       []string
	Recommendations   []string
	Summary           *string
	RiskFactorsEN     []string
	RecommendationsEN []string
	SummaryEN         *string
	CompletedAt       time.Time
}

const resultCols = `id, user_id, category_id, category_title, answers, total_score, max_score,
	percentage, risk_level, language, risk_factors, recommendations, summary,
	risk_factors_en, recommendations_en, summary_en, completed_at`

// toRow flattens a result into the column layout. Thai analysis goes to
// the unsuffixed columns, English to the _en ones.
func toRow(userID string, r *AssessmentResult) (*resultRow, error) {
	title, err := json.Marshal(r.CategoryTitle)
	if err != nil {
		return nil, fmt.Errorf("encode category title: %w", err)
	}
	answers := r.Answers
	if answers == nil {
		answers = []scoring.Answer{}
	}
	ans, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	row := &resultRow{
		ID:            r.ID,
		UserID:        userID,
		CategoryID:    r.Category,
		CategoryTitle: title,
		Answers:       ans,
		TotalScore:    r.TotalScore,
		MaxScore:      r.MaxScore,
		Percentage:    r.Percentage,
		RiskLevel:     string(r.RiskLevel),
		Language:      string(r.Language),
		CompletedAt:   r.CompletedAt,
	}
	row.RiskFactors, _ = r.RiskFactors.Lookup(bilingual.Thai)
	row.RiskFactorsEN, _ = r.RiskFactors.Lookup(bilingual.English)
	row.Recommendations, _ = r.Recommendations.Lookup(bilingual.Thai)
	row.RecommendationsEN, _ = r.Recommendations.Lookup(bilingual.English)
	row.Summary = r.Summary.Th
	row.SummaryEN = r.Summary.En
	return row, nil
}

// fromRow rebuilds a result. A NULL array column means that language had
// no analysis.
func fromRow(row *resultRow) (*AssessmentResult, error) {
	r := &AssessmentResult{
		ID:          row.ID,
		Category:    row.CategoryID,
		CompletedAt: row.CompletedAt,
		TotalScore:  row.TotalScore,
		MaxScore:    row.MaxScore,
		Percentage:  row.Percentage,
		Language:    bilingual.Locale(row.Language),
	}
	if len(row.CategoryTitle) > 0 {
		if err := json.Unmarshal(row.CategoryTitle, &r.CategoryTitle); err != nil {
			return nil, fmt.Errorf("decode category title: %w", err)
		}
	}
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	// Stored levels predate any table change; unknown ones are kept
	// visible as unknown rather than failing the read.
	r.RiskLevel, _ = risk.ParseLevel(row.RiskLevel)

	if row.RiskFactors != nil {
		r.RiskFactors.Set(bilingual.Thai, row.RiskFactors)
	}
	if row.RiskFactorsEN != nil {
		r.RiskFactors.Set(bilingual.English, row.RiskFactorsEN)
	}
	if row.Recommendations != nil {
		r.Recommendations.Set(bilingual.Thai, row.Recommendations)
	}
	if row.RecommendationsEN != nil {
		r.Recommendations.Set(bilingual.English, row.RecommendationsEN)
	}
	r.Summary.Th = row.Summary
	r.Summary.En = row.SummaryEN
	return r, nil
}

func (s *PGStore) Save(ctx context.Context, who auth.Identity, r *AssessmentResult) error {
	if !who.IsUser() {
		return fmt.Errorf("%w: %s is not a user", ErrForbidden, who)
	}
	row, err := toRow(who.ID, r)
	if err != nil {
		return err
	}
	q := s.conn(ctx)
	tag, err := q.Exec(ctx, `
		INSERT INTO assessment_results (`+resultCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO NOTHING`,
		row.ID, row.UserID, row.CategoryID, row.CategoryTitle, row.Answers,
		row.TotalScore, row.MaxScore, row.Percentage, row.RiskLevel, row.Language,
		row.RiskFactors, row.Recommendations, row.Summary,
		row.RiskFactorsEN, row.RecommendationsEN, row.SummaryEN, row.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert assessment result: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	// The id is already stored. A replay by the same owner is a no-op.
	var owner string
	if err := q.QueryRow(ctx, `SELECT user_id FROM assessment_results WHERE id = $1`, row.ID).Scan(&owner); err != nil {
		return fmt.Errorf("check existing assessment result: %w", err)
	}
	return checkReplay(owner, who, r.ID)
}

// checkReplay accepts a result id that is already stored for who and
// rejects one stored for anyone else.
func checkReplay(owner string, who auth.Identity, id uuid.UUID) error {
	if owner != who.ID {
		return fmt.Errorf("%w: result %s belongs to another user", ErrForbidden, id)
	}
	return nil
}

func scanRow(row pgx.Row) (*AssessmentResult, error) {
	var r resultRow
	err := row.Scan(&r.ID, &r.UserID, &r.CategoryID, &r.CategoryTitle, &r.Answers,
		&r.TotalScore, &r.MaxScore, &r.Percentage, &r.RiskLevel, &r.Language,
		&r.RiskFactors, &r.Recommendations, &r.Summary,
		&r.RiskFactorsEN, &r.RecommendationsEN, &r.SummaryEN, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	return fromRow(&r)
}

func (s *PGStore) query(ctx context.Context, sql string, args ...interface{}) ([]*AssessmentResult, error) {
	rows, err := s.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AssessmentResult
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		s.check.Check(r)
		items = append(items, r)
	}
	return items, rows.Err()
}

func (s *PGStore) GetAll(ctx context.Context, who auth.Identity) ([]*AssessmentResult, error) {
	items, err := s.query(ctx, `SELECT `+resultCols+` FROM assessment_results
		WHERE user_id = $1 ORDER BY completed_at DESC`, who.ID)
	if err != nil {
		return nil, fmt.Errorf("list assessment results: %w", err)
	}
	return items, nil
}

func (s *PGStore) GetLatestByCategory(ctx context.Context, who auth.Identity) (map[string]*AssessmentResult, error) {
	items, err := s.query(ctx, `SELECT DISTINCT ON (category_id) `+resultCols+` FROM assessment_results
		WHERE user_id = $1 ORDER BY category_id, completed_at DESC`, who.ID)
	if err != nil {
		return nil, fmt.Errorf("latest assessment results: %w", err)
	}
	out := make(map[string]*AssessmentResult, len(items))
	for _, r := range items {
		out[r.Category] = r
	}
	return out, nil
}

func (s *PGStore) DeleteAll(ctx context.Context, who auth.Identity) error {
	if err := authorizeDelete(ctx, who); err != nil {
		return err
	}
	if _, err := s.conn(ctx).Exec(ctx, `DELETE FROM assessment_results WHERE user_id = $1`, who.ID); err != nil {
		return fmt.Errorf("delete assessment results: %w", err)
	}
	return nil
}
