package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func parseLocale(s string) bilingual.Locale {
	if l, ok := bilingual.Parse(s); ok {
		return l
	}
	return bilingual.Default
}

// GetOrCreate returns the user's profile, creating it on first sight
// with the email from the token and the negotiated language.
func (s *Service) GetOrCreate(ctx context.Context, id uuid.UUID, email string, lang bilingual.Locale) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if !lang.Valid() {
		lang = bilingual.Default
	}
	return s.repo.Create(ctx, &Profile{
		ID:                id,
		Email:             strings.TrimSpace(email),
		PreferredLanguage: lang,
	})
}

// Update applies req to the user's profile.
func (s *Service) Update(ctx context.Context, id uuid.UUID, email string, req UpdateRequest) (*Profile, error) {
	p, err := s.GetOrCreate(ctx, id, email, bilingual.Default)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		p.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.PreferredLanguage != nil {
		l, ok := bilingual.Parse(*req.PreferredLanguage)
		if !ok {
			return nil, fmt.Errorf("%w: preferred_language must be th or en", ErrInvalid)
		}
		p.PreferredLanguage = l
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalid)
		}
		if dob.After(s.now()) {
			return nil, fmt.Errorf("%w: date_of_birth is in the future", ErrInvalid)
		}
		p.DateOfBirth = &dob
	}
	if req.Gender != nil {
		g := *req.Gender
		p.Gender = &g
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	return p, nil
}
