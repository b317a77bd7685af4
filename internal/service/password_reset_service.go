package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trellis-app/trellis-backend/internal/domain"
	"github.com/trellis-app/trellis-backend/internal/repository/ports"
	"github.com/trellis-app/trellis-backend/internal/util"
)

const defaultPasswordResetTTL = 10 * time.Minute

// PasswordResetService mirrors the session lifecycle for reset flows, with
// two deliberate differences: a short fixed lifetime and no renewal, so a
// leaked reset token stays usable for minutes, not days.
type PasswordResetService struct {
	sessions ports.PasswordResetSessionRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewPasswordResetService(sessions ports.PasswordResetSessionRepository, ttl time.Duration) *PasswordResetService {
	if ttl <= 0 {
		ttl = defaultPasswordResetTTL
	}
	return &PasswordResetService{
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *PasswordResetService) Create(ctx context.Context, token string, userID uuid.UUID, externalRequestID string) (*domain.PasswordResetSession, error) {
	session := &domain.PasswordResetSession{
		ID:                util.SessionIDFromToken(token),
		ExternalRequestID: externalRequestID,
		UserID:            userID,
		ExpiresAt:         s.now().Add(s.ttl),
		EmailVerified:     false,
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate resolves a raw reset token. Same derive/lookup/expire pattern as
// ordinary sessions, minus the renewal step.
func (s *PasswordResetService) Validate(ctx context.Context, token string) (*domain.PasswordResetSession, *domain.User, error) {
	id := util.SessionIDFromToken(token)
	session, user, err := s.sessions.FindByIDWithUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, nil, nil
	}
	return session, user, nil
}

// MarkEmailVerified records that the user proved control of the inbox. The
// caller must have verified the code with the identity provider first; the
// flag is one-way and gates the actual password change.
func (s *PasswordResetService) MarkEmailVerified(ctx context.Context, sessionID string) error {
	return s.sessions.MarkEmailVerified(ctx, sessionID)
}

func (s *PasswordResetService) Invalidate(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *PasswordResetService) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUser(ctx, userID)
}
