package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatroom/internal/app/user"
)

// IdentityRepo stores accounts in the identities table.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// CreateAccount inserts acc. A duplicate password email or federated subject
// returns user.ErrAccountExists.
func (r *IdentityRepo) CreateAccount(ctx context.Context, acc user.Account) error {
	const query = `
		INSERT INTO identities (id, email, password_hash, provider, subject, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		acc.ID,
		acc.Email,
		acc.PasswordHash,
		acc.Provider,
		acc.Subject,
		acc.CreatedAt,
	)
	if IsUniqueViolation(err) {
		return user.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// AccountByEmail looks up a password account by email, case-insensitively.
func (r *IdentityRepo) AccountByEmail(ctx context.Context, email string) (user.Account, error) {
	const query = `
		SELECT id, email, password_hash, provider, subject, created_at
		FROM identities
		WHERE lower(email) = lower($1) AND provider = $2
	`
	return r.scanOne(ctx, query, email, user.ProviderPassword)
}

// AccountBySubject looks up a federated account.
func (r *IdentityRepo) AccountBySubject(ctx context.Context, provider, subject string) (user.Account, error) {
	const query = `
		SELECT id, email, password_hash, provider, subject, created_at
		FROM identities
		WHERE provider = $1 AND subject = $2
	`
	return r.scanOne(ctx, query, provider, subject)
}

// DeleteAccount removes the account and, through the cascade, its profile.
func (r *IdentityRepo) DeleteAccount(ctx context.Context, id string) error {
	const query = `DELETE FROM identities WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *IdentityRepo) scanOne(ctx context.Context, query string, args ...any) (user.Account, error) {
	var acc user.Account
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Provider,
		&acc.Subject,
		&acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.Account{}, user.ErrNotFound
	}
	if err != nil {
		return user.Account{}, fmt.Errorf("select identity: %w", err)
	}
	return acc, nil
}
