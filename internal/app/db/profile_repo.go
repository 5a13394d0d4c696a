package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatroom/internal/app/user"
)

// ProfileRepo stores profile records. Profiles are written once and never updated.
type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) CreateProfile(ctx context.Context, p user.Profile) error {
	const query = `
		INSERT INTO profiles (id, display_name, email, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.DisplayName,
		p.Email,
		p.AvatarURL,
		p.CreatedAt,
	)
	switch {
	case IsUniqueViolation(err):
		return user.ErrProfileExists
	case IsForeignKeyViolation(err):
		return user.ErrNotFound
	case err != nil:
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) Profile(ctx context.Context, id string) (user.Profile, error) {
	const query = `
		SELECT id, display_name, email, avatar_url, created_at
		FROM profiles
		WHERE id = $1
	`
	var p user.Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.DisplayName,
		&p.Email,
		&p.AvatarURL,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.Profile{}, user.ErrNotFound
	}
	if err != nil {
		return user.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}
