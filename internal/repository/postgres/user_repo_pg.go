package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trellis-app/trellis-backend/internal/domain"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, externalID, email, username string) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (external_id, email, username)
        VALUES ($1, $2, $3)
        RETURNING id, external_id, email, username, email_verified, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query, externalID, email, username)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `
        SELECT id, external_id, email, username, email_verified, created_at, updated_at
        FROM user_account
        WHERE id = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, external_id, email, username, email_verified, created_at, updated_at
        FROM user_account
        WHERE email = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `
        SELECT id, external_id, email, username, email_verified, created_at, updated_at
        FROM user_account
        WHERE external_id = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, externalID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE user_account SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *UserRepository) UpdateEmailAndSetVerified(ctx context.Context, id uuid.UUID, email string) error {
	const query = `UPDATE user_account SET email = $2, email_verified = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, email)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM user_account WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
