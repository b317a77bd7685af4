package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/trellis-app/trellis-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, externalID, email, username string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	UpdateEmailAndSetVerified(ctx context.Context, id uuid.UUID, email string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
