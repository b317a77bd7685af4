package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trellis-app/trellis-backend/internal/domain"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// sessionUserRow flattens the session/user join; column aliases keep the two
// id columns apart for StructScan.
type sessionUserRow struct {
	ID                   string    `db:"id"`
	UserID               uuid.UUID `db:"user_id"`
	ExpiresAt            time.Time `db:"expires_at"`
	EmailUpdateRequestID *string   `db:"email_update_request_id"`
	UID                  uuid.UUID `db:"u_id"`
	ExternalID           string    `db:"u_external_id"`
	Email                string    `db:"u_email"`
	Username             string    `db:"u_username"`
	EmailVerified        bool      `db:"u_email_verified"`
	CreatedAt            time.Time `db:"u_created_at"`
	UpdatedAt            time.Time `db:"u_updated_at"`
}

func (row *sessionUserRow) split() (*domain.Session, *domain.User) {
	session := domain.Session{
		ID:                   row.ID,
		UserID:               row.UserID,
		ExpiresAt:            row.ExpiresAt,
		EmailUpdateRequestID: row.EmailUpdateRequestID,
	}
	user := domain.User{
		ID:            row.UID,
		ExternalID:    row.ExternalID,
		Email:         row.Email,
		Username:      row.Username,
		EmailVerified: row.EmailVerified,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	return &session, &user
}

func (r *SessionRepository) Insert(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO session (id, user_id, expires_at, email_update_request_id)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.ExpiresAt, session.EmailUpdateRequestID)
	return err
}

func (r *SessionRepository) FindByIDWithUser(ctx context.Context, id string) (*domain.Session, *domain.User, error) {
	const query = `
        SELECT s.id, s.user_id, s.expires_at, s.email_update_request_id,
               u.id AS u_id, u.external_id AS u_external_id, u.email AS u_email,
               u.username AS u_username, u.email_verified AS u_email_verified,
               u.created_at AS u_created_at, u.updated_at AS u_updated_at
        FROM session s
        INNER JOIN user_account u ON s.user_id = u.id
        WHERE s.id = $1
    `
	var row sessionUserRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, nil, err
	}
	session, user := row.split()
	return session, user, nil
}

func (r *SessionRepository) UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE session SET expires_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, expiresAt)
	return err
}

func (r *SessionRepository) SetEmailUpdateRequestID(ctx context.Context, id string, requestID string) error {
	const query = `UPDATE session SET email_update_request_id = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, requestID)
	return err
}

func (r *SessionRepository) ClearEmailUpdateRequestID(ctx context.Context, id string) error {
	const query = `UPDATE session SET email_update_request_id = NULL WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM session WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	const query = `DELETE FROM session WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
