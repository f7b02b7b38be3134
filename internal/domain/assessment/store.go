package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrIncomplete       = errors.New("required questions unanswered")
	ErrInvalidState     = errors.New("attempt cannot change in its current state")
	ErrPersistence      = errors.New("result could not be saved")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store persists results for one kind of identity. Reads return results
// newest first.
type Store interface {
	// Save stores r for who. Saving a result id that who already holds
	// changes nothing, so interrupted copies can be replayed.
	Save(ctx context.Context, who auth.Identity, r *AssessmentResult) error
	GetLatestByCategory(ctx context.Context, who auth.Identity) (map[string]*AssessmentResult, error)
	GetAll(ctx context.Context, who auth.Identity) ([]*AssessmentResult, error)
	// DeleteAll removes every result of who. The identity in ctx must be
	// who; otherwise ErrForbidden is returned and nothing is removed.
	DeleteAll(ctx context.Context, who auth.Identity) error
}

// authorizeDelete checks that the session identity in ctx is target.
func authorizeDelete(ctx context.Context, target auth.Identity) error {
	session, ok := auth.IdentityFromContext(ctx)
	if !ok || session != target {
		return fmt.Errorf("%w: %s may not delete results of %s", ErrForbidden, session, target)
	}
	return nil
}
