package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wellcheck/wellcheck/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const profileCols = `id, email, full_name, preferred_language, date_of_birth, gender, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var lang string
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &lang, &p.DateOfBirth, &p.Gender, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PreferredLanguage = parseLocale(lang)
	return &p, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Profile) (*Profile, error) {
	var out *Profile
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO profiles (id, email, full_name, preferred_language)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Email, p.FullName, p.PreferredLanguage.String())
		if err != nil {
			return err
		}
		out, err = scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = $1`, p.ID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return out, nil
}

func (r *repoPG) Update(ctx context.Context, p *Profile) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET full_name = $2, preferred_language = $3, date_of_birth = $4,
			gender = $5, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.PreferredLanguage.String(), p.DateOfBirth, p.Gender)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
