// Package profile stores the account details of signed-in users.
package profile

import (
	"time"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// Profile belongs to one signed-in user; ID is the auth user id.
type Profile struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	Email             string           `db:"email" json:"email"`
	FullName          string           `db:"full_name" json:"full_name"`
	PreferredLanguage bilingual.Locale `db:"preferred_language" json:"preferred_language"`
	DateOfBirth       *time.Time       `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string          `db:"gender" json:"gender,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// UpdateRequest carries the fields a user may change. Nil fields are
// left as they are.
type UpdateRequest struct {
	FullName          *string `json:"full_name" validate:"omitempty,max=200"`
	PreferredLanguage *string `json:"preferred_language" validate:"omitempty,oneof=th en"`
	DateOfBirth       *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender            *string `json:"gender" validate:"omitempty,oneof=male female other unspecified"`
}
