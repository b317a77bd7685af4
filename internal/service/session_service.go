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

const (
	defaultSessionTTL           = 30 * 24 * time.Hour
	defaultSessionRenewalWindow = 15 * 24 * time.Hour
)

// SessionService implements the session lifecycle: opaque tokens hashed into
// storage keys, fail-closed expiration, and sliding renewal for sessions used
// within the trailing half of their lifetime.
type SessionService struct {
	sessions    ports.SessionRepository
	ttl         time.Duration
	renewWithin time.Duration
	now         func() time.Time
}

func NewSessionService(sessions ports.SessionRepository, ttl, renewWithin time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if renewWithin <= 0 || renewWithin > ttl {
		renewWithin = defaultSessionRenewalWindow
	}
	return &SessionService{
		sessions:    sessions,
		ttl:         ttl,
		renewWithin: renewWithin,
		now:         time.Now,
	}
}

// Create persists a session for the raw token and returns the stored record.
// Only the derived id is written; the token stays with the caller.
func (s *SessionService) Create(ctx context.Context, token string, userID uuid.UUID, emailUpdateRequestID *string) (*domain.Session, error) {
	session := &domain.Session{
		ID:                   util.SessionIDFromToken(token),
		UserID:               userID,
		ExpiresAt:            s.now().Add(s.ttl),
		EmailUpdateRequestID: emailUpdateRequestID,
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate resolves a raw token to its session and owning user. Unknown and
// expired tokens both come back as (nil, nil, nil); an error means storage
// failed, not that the token was bad. Expired rows are deleted on read as a
// best-effort sweep; rejection does not depend on the delete succeeding.
// A session seen within the renewal window has its expiry slid forward to a
// full lifetime from now; concurrent renewals are an idempotent last-write-
// wins race since renewal only ever extends validity.
func (s *SessionService) Validate(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	id := util.SessionIDFromToken(token)
	session, user, err := s.sessions.FindByIDWithUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	now := s.now()
	if !now.Before(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, nil, nil
	}
	if !now.Before(session.ExpiresAt.Add(-s.renewWithin)) {
		session.ExpiresAt = now.Add(s.ttl)
		if err := s.sessions.UpdateExpiresAt(ctx, session.ID, session.ExpiresAt); err != nil {
			return nil, nil, err
		}
	}
	return session, user, nil
}

// Invalidate removes one session, typically on logout.
func (s *SessionService) Invalidate(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// InvalidateUserSessions removes every session the user holds, forcing
// re-authentication on all devices after a credential change.
func (s *SessionService) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

// SetEmailUpdateRequest binds an in-flight email-update request to this
// session only; the user's other sessions are untouched.
func (s *SessionService) SetEmailUpdateRequest(ctx context.Context, sessionID, requestID string) error {
	return s.sessions.SetEmailUpdateRequestID(ctx, sessionID, requestID)
}

func (s *SessionService) ClearEmailUpdateRequest(ctx context.Context, sessionID string) error {
	return s.sessions.ClearEmailUpdateRequestID(ctx, sessionID)
}
