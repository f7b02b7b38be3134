package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("profile not found")
	ErrInvalid  = errors.New("invalid profile")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// Create inserts p unless a profile with its id exists, and returns
	// the stored row either way.
	Create(ctx context.Context, p *Profile) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}
