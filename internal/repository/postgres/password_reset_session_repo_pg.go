package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trellis-app/trellis-backend/internal/domain"
)

type PasswordResetSessionRepository struct {
	db *sqlx.DB
}

func NewPasswordResetSessionRepo(db *sqlx.DB) *PasswordResetSessionRepository {
	return &PasswordResetSessionRepository{db: db}
}

type resetSessionUserRow struct {
	ID                string    `db:"id"`
	ExternalRequestID string    `db:"external_request_id"`
	UserID            uuid.UUID `db:"user_id"`
	ExpiresAt         time.Time `db:"expires_at"`
	EmailVerified     bool      `db:"email_verified"`
	UID               uuid.UUID `db:"u_id"`
	ExternalID        string    `db:"u_external_id"`
	Email             string    `db:"u_email"`
	Username          string    `db:"u_username"`
	UserEmailVerified bool      `db:"u_email_verified"`
	CreatedAt         time.Time `db:"u_created_at"`
	UpdatedAt         time.Time `db:"u_updated_at"`
}

func (row *resetSessionUserRow) split() (*domain.PasswordResetSession, *domain.User) {
	session := domain.PasswordResetSession{
		ID:                row.ID,
		ExternalRequestID: row.ExternalRequestID,
		UserID:            row.UserID,
		ExpiresAt:         row.ExpiresAt,
		EmailVerified:     row.EmailVerified,
	}
	user := domain.User{
		ID:            row.UID,
		ExternalID:    row.ExternalID,
		Email:         row.Email,
		Username:      row.Username,
		EmailVerified: row.UserEmailVerified,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	return &session, &user
}

func (r *PasswordResetSessionRepository) Insert(ctx context.Context, session *domain.PasswordResetSession) error {
	const query = `
        INSERT INTO password_reset_session (id, external_request_id, user_id, expires_at, email_verified)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.ExternalRequestID, session.UserID, session.ExpiresAt, session.EmailVerified)
	return err
}

func (r *PasswordResetSessionRepository) FindByIDWithUser(ctx context.Context, id string) (*domain.PasswordResetSession, *domain.User, error) {
	const query = `
        SELECT s.id, s.external_request_id, s.user_id, s.expires_at, s.email_verified,
               u.id AS u_id, u.external_id AS u_external_id, u.email AS u_email,
               u.username AS u_username, u.email_verified AS u_email_verified,
               u.created_at AS u_created_at, u.updated_at AS u_updated_at
        FROM password_reset_session s
        INNER JOIN user_account u ON s.user_id = u.id
        WHERE s.id = $1
    `
	var row resetSessionUserRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, nil, err
	}
	session, user := row.split()
	return session, user, nil
}

func (r *PasswordResetSessionRepository) MarkEmailVerified(ctx context.Context, id string) error {
	const query = `UPDATE password_reset_session SET email_verified = TRUE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PasswordResetSessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM password_reset_session WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PasswordResetSessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	const query = `DELETE FROM password_reset_session WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
