package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/domain/analysis"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// memStore is an in-memory Store that accepts any identity. Result ids
// saved by users are unique across users, as in assessment_results.
type memStore struct {
	mu       sync.Mutex
	results  map[auth.Identity][]*AssessmentResult
	owners   map[uuid.UUID]auth.Identity
	failNext int
	failAt   int
	saves    int
	ctxErr   error
}

func newMemStore() *memStore {
	return &memStore{
		results: make(map[auth.Identity][]*AssessmentResult),
		owners:  make(map[uuid.UUID]auth.Identity),
	}
}

func (m *memStore) Save(ctx context.Context, who auth.Identity, r *AssessmentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.ctxErr = ctx.Err()
	if m.failNext > 0 {
		m.failNext--
		return errors.New("connection refused")
	}
	if m.failAt > 0 && m.saves == m.failAt {
		return errors.New("connection reset")
	}
	if who.IsUser() && r.ID != uuid.Nil {
		if owner, ok := m.owners[r.ID]; ok {
			if owner != who {
				return fmt.Errorf("duplicate key %s", r.ID)
			}
			return nil
		}
		m.owners[r.ID] = who
	}
	m.results[who] = append(m.results[who], r)
	return nil
}

func (m *memStore) GetLatestByCategory(ctx context.Context, who auth.Identity) (map[string]*AssessmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LatestPerCategory(m.results[who]), nil
}

func (m *memStore) GetAll(ctx context.Context, who auth.Identity) ([]*AssessmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*AssessmentResult(nil), m.results[who]...)
	SortNewestFirst(out)
	return out, nil
}

func (m *memStore) DeleteAll(ctx context.Context, who auth.Identity) error {
	if err := authorizeDelete(ctx, who); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results[who] {
		delete(m.owners, r.ID)
	}
	delete(m.results, who)
	return nil
}

func (m *memStore) count(who auth.Identity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results[who])
}

// fakeAnalyzer answers per locale; a locale listed in fail returns an error.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	fail  map[bilingual.Locale]bool
	level string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analysis.Request, loc bilingual.Locale) (*analysis.Payload, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail[loc]
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: status 500", analysis.ErrUpstream)
	}
	level := f.level
	if level == "" {
		level = "moderate"
	}
	return &analysis.Payload{
		RiskLevel:       level,
		RiskFactors:     []string{"factor-" + loc.String()},
		Recommendations: []string{"rec-" + loc.String()},
		Summary:         "summary-" + loc.String(),
	}, nil
}

func testBank(t *testing.T) *questionbank.Bank {
	t.Helper()
	b, err := questionbank.Default()
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return b
}

func testCategory(t *testing.T, id string) *questionbank.Category {
	t.Helper()
	c, ok := testBank(t).Category(id)
	if !ok {
		t.Fatalf("category %s missing", id)
	}
	return c
}

func newTestService(t *testing.T, a analysis.Analyzer, store Store) *Service {
	t.Helper()
	return NewService(testBank(t), scoring.NewCalculator(zerolog.Nop()), a, store, NewAttemptStore(0), zerolog.Nop())
}

func str(id, v string) scoring.Answer {
	return scoring.Answer{QuestionID: id, Answer: questionbank.StringValue(v)}
}

// phq9Answers answers every PHQ-9 item with the same option.
func phq9Answers(v string) []scoring.Answer {
	out := make([]scoring.Answer, 0, 9)
	for i := 1; i <= 9; i++ {
		out = append(out, str(fmt.Sprintf("phq9_%d", i), v))
	}
	return out
}
