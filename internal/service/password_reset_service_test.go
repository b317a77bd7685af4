package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trellis-app/trellis-backend/internal/domain"
	"github.com/trellis-app/trellis-backend/internal/util"
)

type fakeResetSessionRepo struct {
	sessions map[string]*domain.PasswordResetSession
	users    map[uuid.UUID]*domain.User
	deleted  []string
}

func newFakeResetSessionRepo() *fakeResetSessionRepo {
	return &fakeResetSessionRepo{
		sessions: make(map[string]*domain.PasswordResetSession),
		users:    make(map[uuid.UUID]*domain.User),
	}
}

func (f *fakeResetSessionRepo) addUser(user *domain.User) {
	f.users[user.ID] = user
}

func (f *fakeResetSessionRepo) Insert(ctx context.Context, session *domain.PasswordResetSession) error {
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeResetSessionRepo) FindByIDWithUser(ctx context.Context, id string) (*domain.PasswordResetSession, *domain.User, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	user, ok := f.users[session.UserID]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	sessionClone := *session
	userClone := *user
	return &sessionClone, &userClone, nil
}

func (f *fakeResetSessionRepo) MarkEmailVerified(ctx context.Context, id string) error {
	if session, ok := f.sessions[id]; ok {
		session.EmailVerified = true
	}
	return nil
}

func (f *fakeResetSessionRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.sessions, id)
	return nil
}

func (f *fakeResetSessionRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	for id, session := range f.sessions {
		if session.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func seedResetUser(repo *fakeResetSessionRepo) *domain.User {
	user := &domain.User{ID: uuid.New(), ExternalID: "ext_1", Email: "a@example.com", Username: "alice"}
	repo.addUser(user)
	return user
}

func TestResetSessionCreateDefaults(t *testing.T) {
	ctx := context.Background()
	repo := newFakeResetSessionRepo()
	user := seedResetUser(repo)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewPasswordResetService(repo, 0)
	svc.now = func() time.Time { return base }

	token, _ := util.GenerateSessionToken()
	session, err := svc.Create(ctx, token, user.ID, "prr_1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if session.EmailVerified {
		t.Fatal("a new reset session must start unverified")
	}
	if !session.ExpiresAt.Equal(base.Add(10 * time.Minute)) {
		t.Fatalf("expected 10-minute lifetime, got %v", session.ExpiresAt)
	}
	if session.ExternalRequestID != "prr_1" {
		t.Fatalf("expected provider request binding, got %q", session.ExternalRequestID)
	}
}

func TestResetSessionValidateNeverRenews(t *testing.T) {
	ctx := context.Background()
	repo := newFakeResetSessionRepo()
	user := seedResetUser(repo)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewPasswordResetService(repo, 0)
	svc.now = func() time.Time { return base }

	token, _ := util.GenerateSessionToken()
	created, err := svc.Create(ctx, token, user.ID, "prr_1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Validate right up against expiry, repeatedly; the stored expiry must
	// never move.
	for _, offset := range []time.Duration{time.Minute, 5 * time.Minute, 9 * time.Minute} {
		at := base.Add(offset)
		svc.now = func() time.Time { return at }
		session, got, err := svc.Validate(ctx, token)
		if err != nil {
			t.Fatalf("Validate at +%v returned error: %v", offset, err)
		}
		if session == nil || got == nil {
			t.Fatalf("expected valid session at +%v", offset)
		}
		if !session.ExpiresAt.Equal(created.ExpiresAt) {
			t.Fatalf("reset session expiry changed at +%v: %v", offset, session.ExpiresAt)
		}
	}
	if stored := repo.sessions[created.ID]; !stored.ExpiresAt.Equal(created.ExpiresAt) {
		t.Fatalf("stored expiry changed: %v", stored.ExpiresAt)
	}
}

func TestResetSessionExpiredFailsClosed(t *testing.T) {
	ctx := context.Background()
	repo := newFakeResetSessionRepo()
	user := seedResetUser(repo)

	token := "reset-token"
	id := util.SessionIDFromToken(token)
	repo.sessions[id] = &domain.PasswordResetSession{
		ID:                id,
		ExternalRequestID: "prr_1",
		UserID:            user.ID,
		ExpiresAt:         time.Now().Add(-time.Millisecond),
	}

	svc := NewPasswordResetService(repo, 0)
	session, got, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if session != nil || got != nil {
		t.Fatal("expired reset session must validate to the nil pair")
	}
	if _, exists := repo.sessions[id]; exists {
		t.Fatal("expired reset row should be gone after validation")
	}
}

func TestResetSessionMarkEmailVerified(t *testing.T) {
	ctx := context.Background()
	repo := newFakeResetSessionRepo()
	user := seedResetUser(repo)

	svc := NewPasswordResetService(repo, 0)
	token, _ := util.GenerateSessionToken()
	created, err := svc.Create(ctx, token, user.ID, "prr_1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.MarkEmailVerified(ctx, created.ID); err != nil {
		t.Fatalf("MarkEmailVerified returned error: %v", err)
	}
	session, _, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !session.EmailVerified {
		t.Fatal("expected email_verified to be set")
	}
}

func TestResetSessionValidateUnknownToken(t *testing.T) {
	svc := NewPasswordResetService(newFakeResetSessionRepo(), 0)
	session, user, err := svc.Validate(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if session != nil || user != nil {
		t.Fatal("unknown reset token must resolve to the nil pair")
	}
}
