package assessment

import (
	"context"
	"fmt"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
)

// DualStore routes each call to the user or guest store by identity kind.
// Users may be nil when the service runs without a database.
type DualStore struct {
	Users  Store
	Guests Store
}

func (d *DualStore) pick(who auth.Identity) (Store, error) {
	switch {
	case who.IsUser():
		if d.Users == nil {
			return nil, fmt.Errorf("%w: no database configured for signed-in users", ErrStoreUnavailable)
		}
		return d.Users, nil
	case who.IsGuest():
		return d.Guests, nil
	}
	return nil, fmt.Errorf("%w: no identity", ErrForbidden)
}

func (d *DualStore) Save(ctx context.Context, who auth.Identity, r *AssessmentResult) error {
	s, err := d.pick(who)
	if err != nil {
		return err
	}
	return s.Save(ctx, who, r)
}

func (d *DualStore) GetLatestByCategory(ctx context.Context, who auth.Identity) (map[string]*AssessmentResult, error) {
	s, err := d.pick(who)
	if err != nil {
		return nil, err
	}
	return s.GetLatestByCategory(ctx, who)
}

func (d *DualStore) GetAll(ctx context.Context, who auth.Identity) ([]*AssessmentResult, error) {
	s, err := d.pick(who)
	if err != nil {
		return nil, err
	}
	return s.GetAll(ctx, who)
}

func (d *DualStore) DeleteAll(ctx context.Context, who auth.Identity) error {
	s, err := d.pick(who)
	if err != nil {
		return err
	}
	return s.DeleteAll(ctx, who)
}
