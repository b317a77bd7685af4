package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/trellis-app/trellis-backend/internal/domain"
)

// PasswordResetSessionRepository owns the password_reset_session table. It is
// a keyspace of its own; reset sessions never share rows with ordinary
// sessions because their lifetimes and renewal rules differ.
type PasswordResetSessionRepository interface {
	Insert(ctx context.Context, session *domain.PasswordResetSession) error
	FindByIDWithUser(ctx context.Context, id string) (*domain.PasswordResetSession, *domain.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
