// Package assessment runs a questionnaire attempt from answers to a stored
// result and reads results back for either kind of identity.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/domain/analysis"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// Recorder observes submissions for metrics.
type Recorder interface {
	AnalysisFinished(loc bilingual.Locale, outcome string)
	AssessmentStored(category string, level risk.Level)
}

type nopRecorder struct{}

func (nopRecorder) AnalysisFinished(bilingual.Locale, string) {}
func (nopRecorder) AssessmentStored(string, risk.Level)       {}

type Service struct {
	bank     *questionbank.Bank
	calc     *scoring.Calculator
	analyzer analysis.Analyzer
	store    Store
	attempts *AttemptStore
	logger   zerolog.Logger
	metrics  Recorder
	now      func() time.Time
}

func NewService(bank *questionbank.Bank, calc *scoring.Calculator, analyzer analysis.Analyzer,
	store Store, attempts *AttemptStore, logger zerolog.Logger) *Service {
	return &Service{
		bank:     bank,
		calc:     calc,
		analyzer: analyzer,
		store:    store,
		attempts: attempts,
		logger:   logger.With().Str("component", "assessment").Logger(),
		metrics:  nopRecorder{},
		now:      time.Now,
	}
}

// SetRecorder installs r to observe submissions. A nil r disables it.
func (s *Service) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.metrics = r
}

func (s *Service) category(id string) (*questionbank.Category, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("category is required")
	}
	c, ok := s.bank.Category(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	return c, nil
}

// StartAttempt opens an attempt for who.
func (s *Service) StartAttempt(ctx context.Context, who auth.Identity, categoryID string, lang bilingual.Locale) (*Attempt, error) {
	if _, err := s.category(categoryID); err != nil {
		return nil, err
	}
	if !lang.Valid() {
		lang = bilingual.Default
	}
	now := s.now().UTC()
	a := &Attempt{
		ID:        uuid.New(),
		Owner:     who,
		Category:  categoryID,
		Language:  lang,
		Answers:   make(map[string]scoring.Answer),
		State:     StateNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.attempts.Put(a)
	return a.clone(), nil
}

// GetAttempt returns the attempt if who owns it. Other owners' attempts
// are reported as not found.
func (s *Service) GetAttempt(ctx context.Context, who auth.Identity, id uuid.UUID) (*Attempt, error) {
	a, ok := s.attempts.Get(id)
	if !ok || a.Owner != who {
		return nil, ErrNotFound
	}
	return a, nil
}

// Answer records answers on an open attempt, resolving each score now.
// A later answer to the same question replaces the earlier one. Answers
// to unknown questions or options are rejected.
func (s *Service) Answer(ctx context.Context, who auth.Identity, id uuid.UUID, answers []scoring.Answer) (*Attempt, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("answers are required")
	}
	return s.attempts.Update(id, func(a *Attempt) error {
		if a.Owner != who {
			return ErrNotFound
		}
		if a.State != StateNotStarted && a.State != StateInProgress {
			return fmt.Errorf("%w: %s", ErrInvalidState, a.State)
		}
		cat, err := s.category(a.Category)
		if err != nil {
			return err
		}
		resolved := make([]scoring.Answer, 0, len(answers))
		for _, ans := range answers {
			score, err := scoring.ScoreAnswer(cat, ans.QuestionID, ans.Answer)
			if err != nil {
				return err
			}
			resolved = append(resolved, scoring.Answer{QuestionID: ans.QuestionID, Answer: ans.Answer, Score: score})
		}
		for _, ans := range resolved {
			a.Answers[ans.QuestionID] = ans
		}
		a.State = StateInProgress
		return nil
	})
}

// Submit scores, analyzes and stores the attempt. Submitting an attempt
// whose save failed retries only the save, reusing the held result.
// Submitting a stored attempt returns its result again.
func (s *Service) Submit(ctx context.Context, who auth.Identity, id uuid.UUID) (*AssessmentResult, error) {
	var result *AssessmentResult
	_, err := s.attempts.Update(id, func(a *Attempt) error {
		if a.Owner != who {
			return ErrNotFound
		}
		var err error
		result, err = s.advance(ctx, a)
		return err
	})
	return result, err
}

func (s *Service) advance(ctx context.Context, a *Attempt) (*AssessmentResult, error) {
	switch a.State {
	case StatePersisted:
		return a.Result, nil
	case StateAnalyzed:
		return s.persist(ctx, a)
	case StateNotStarted:
		return nil, fmt.Errorf("%w: no answers yet", ErrInvalidState)
	}

	cat, err := s.category(a.Category)
	if err != nil {
		return nil, err
	}
	answers := a.AnswerList()
	if missing := scoring.MissingRequired(cat, answers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	eval := s.calc.Evaluate(cat, answers)
	a.State = StateSubmitted
	base := Base{
		ID:          a.ID,
		Category:    cat,
		Evaluation:  eval,
		Language:    a.Language,
		CompletedAt: s.now().UTC(),
	}
	// Held before analysis so an abandoned request still leaves the
	// numeric result behind.
	a.Result = Merge(base, nil, nil)

	out := analysis.AnalyzeBilingual(ctx, s.analyzer, analysis.Request{
		Category:   cat,
		Answers:    eval.Answers,
		TotalScore: eval.TotalScore,
		MaxScore:   eval.MaxScore,
		RiskLevel:  eval.RiskLevel,
	})
	s.logAnalysis(a, eval.RiskLevel, out)
	a.Result = Merge(base, out.Th, out.En)
	a.State = StateAnalyzed

	return s.persist(ctx, a)
}

func (s *Service) persist(ctx context.Context, a *Attempt) (*AssessmentResult, error) {
	// The deterministic result is saved even if the caller went away.
	if err := s.store.Save(context.WithoutCancel(ctx), a.Owner, a.Result); err != nil {
		a.LastError = err.Error()
		s.logger.Error().Err(err).
			Str("attempt_id", a.ID.String()).
			Str("identity", a.Owner.String()).
			Msg("saving assessment result failed, held for retry")
		return a.Result, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	a.LastError = ""
	a.State = StatePersisted
	s.metrics.AssessmentStored(a.Category, a.Result.RiskLevel)
	s.logger.Info().
		Str("attempt_id", a.ID.String()).
		Str("category", a.Category).
		Str("risk_level", string(a.Result.RiskLevel)).
		Bool("analysis", a.Result.HasAnalysis()).
		Msg("assessment stored")
	return a.Result, nil
}

func (s *Service) logAnalysis(a *Attempt, level risk.Level, out analysis.Outcome) {
	if out.Failed() {
		s.logger.Debug().Str("attempt_id", a.ID.String()).Msg("no analysis in either language")
	}
	for _, r := range []struct {
		loc bilingual.Locale
		p   *analysis.Payload
		err error
	}{
		{bilingual.Thai, out.Th, out.ThErr},
		{bilingual.English, out.En, out.EnErr},
	} {
		switch {
		case errors.Is(r.err, analysis.ErrAnalysisDisabled):
			s.metrics.AnalysisFinished(r.loc, "disabled")
			continue
		case r.err != nil:
			s.metrics.AnalysisFinished(r.loc, "failed")
			s.logger.Warn().Err(r.err).
				Str("attempt_id", a.ID.String()).
				Str("locale", r.loc.String()).
				Msg("analysis failed, storing numeric result only")
			continue
		}
		s.metrics.AnalysisFinished(r.loc, "ok")
		if risk.FromAdvisory(r.p.RiskLevel) != level {
			s.logger.Debug().
				Str("attempt_id", a.ID.String()).
				Str("locale", r.loc.String()).
				Str("advisory", r.p.RiskLevel).
				Str("risk_level", string(level)).
				Msg("model risk level differs from classifier, ignored")
		}
	}
}

// SubmitOnce runs a whole attempt in one call. On a save failure the
// attempt stays held and its id is returned for a retry through Submit.
func (s *Service) SubmitOnce(ctx context.Context, who auth.Identity, categoryID string, lang bilingual.Locale, answers []scoring.Answer) (*AssessmentResult, uuid.UUID, error) {
	a, err := s.StartAttempt(ctx, who, categoryID, lang)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if _, err := s.Answer(ctx, who, a.ID, answers); err != nil {
		return nil, a.ID, err
	}
	r, err := s.Submit(ctx, who, a.ID)
	return r, a.ID, err
}

// List returns every stored result of who, newest first.
func (s *Service) List(ctx context.Context, who auth.Identity) ([]*AssessmentResult, error) {
	items, err := s.store.GetAll(ctx, who)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(items)
	return items, nil
}

// Latest returns the most recent result of each category, newest first.
func (s *Service) Latest(ctx context.Context, who auth.Identity) ([]*AssessmentResult, error) {
	m, err := s.store.GetLatestByCategory(ctx, who)
	if err != nil {
		return nil, err
	}
	items := make([]*AssessmentResult, 0, len(m))
	for _, r := range m {
		items = append(items, r)
	}
	SortNewestFirst(items)
	return items, nil
}

// DeleteAll removes every result of target. ctx must carry target as the
// session identity.
func (s *Service) DeleteAll(ctx context.Context, target auth.Identity) error {
	return s.store.DeleteAll(ctx, target)
}

// ImportGuest copies a guest's results into user's history, then clears
// the guest storage. It returns how many results were copied.
func (s *Service) ImportGuest(ctx context.Context, user auth.Identity, guestID string) (int, error) {
	if !user.IsUser() {
		return 0, fmt.Errorf("%w: only signed-in users can import", ErrForbidden)
	}
	gid, err := uuid.Parse(guestID)
	if err != nil {
		return 0, fmt.Errorf("guest_id must be a UUID")
	}
	guest := auth.Guest(gid.String())

	items, err := s.store.GetAll(ctx, guest)
	if err != nil {
		return 0, err
	}
	for i, r := range items {
		if err := s.store.Save(ctx, user, r); err != nil {
			return i, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	// The guest id is the guest's only credential, so holding it is
	// enough to clear it.
	if err := s.store.DeleteAll(auth.WithIdentity(ctx, guest), guest); err != nil {
		return len(items), err
	}
	s.logger.Info().Str("user_id", user.ID).Int("count", len(items)).Msg("guest results imported")
	return len(items), nil
}
