package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trellis-app/trellis-backend/internal/domain"
)

// SessionRepository owns the session table. Lookups return sql.ErrNoRows when
// no row matches; services translate that into a nil validation result.
type SessionRepository interface {
	Insert(ctx context.Context, session *domain.Session) error
	// FindByIDWithUser joins the owning user so validation is one round trip.
	FindByIDWithUser(ctx context.Context, id string) (*domain.Session, *domain.User, error)
	UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) error
	SetEmailUpdateRequestID(ctx context.Context, id string, requestID string) error
	ClearEmailUpdateRequestID(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
