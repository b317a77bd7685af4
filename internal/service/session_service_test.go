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

type fakeSessionRepo struct {
	sessions map[string]*domain.Session
	users    map[uuid.UUID]*domain.User

	insertErr   error
	findErr     error
	updateCalls int
	deleted     []string
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*domain.Session),
		users:    make(map[uuid.UUID]*domain.User),
	}
}

func (f *fakeSessionRepo) addUser(user *domain.User) {
	f.users[user.ID] = user
}

func (f *fakeSessionRepo) Insert(ctx context.Context, session *domain.Session) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionRepo) FindByIDWithUser(ctx context.Context, id string) (*domain.Session, *domain.User, error) {
	if f.findErr != nil {
		return nil, nil, f.findErr
	}
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

func (f *fakeSessionRepo) UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) error {
	f.updateCalls++
	if session, ok := f.sessions[id]; ok {
		session.ExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeSessionRepo) SetEmailUpdateRequestID(ctx context.Context, id string, requestID string) error {
	if session, ok := f.sessions[id]; ok {
		session.EmailUpdateRequestID = &requestID
	}
	return nil
}

func (f *fakeSessionRepo) ClearEmailUpdateRequestID(ctx context.Context, id string) error {
	if session, ok := f.sessions[id]; ok {
		session.EmailUpdateRequestID = nil
	}
	return nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	for id, session := range f.sessions {
		if session.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func newSessionServiceAt(repo *fakeSessionRepo, at time.Time) *SessionService {
	svc := NewSessionService(repo, 0, 0)
	svc.now = func() time.Time { return at }
	return svc
}

func seedUser(repo *fakeSessionRepo) *domain.User {
	user := &domain.User{ID: uuid.New(), ExternalID: "ext_1", Email: "a@example.com", Username: "alice"}
	repo.addUser(user)
	return user
}

func TestSessionCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSessionRepo()
	user := seedUser(repo)
	svc := NewSessionService(repo, 0, 0)

	token, err := util.GenerateSessionToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	created, err := svc.Create(ctx, token, user.ID, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != util.SessionIDFromToken(token) {
		t.Fatalf("session id should be the derived token digest")
	}
	if created.ID == token {
		t.Fatal("raw token must not be used as the storage key")
	}

	session, got, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if session == nil || got == nil {
		t.Fatal("expected session and user for a valid token")
	}
	if session.UserID != user.ID || got.ID != user.ID {
		t.Fatalf("validation returned wrong user: session.UserID=%s user.ID=%s", session.UserID, got.ID)
	}

	session, got, err = svc.Validate(ctx, "wrong-token")
	if err != nil {
		t.Fatalf("Validate returned error for unknown token: %v", err)
	}
	if session != nil || got != nil {
		t.Fatal("unknown token must resolve to the nil pair")
	}
}

func TestSessionValidateExpiredFailsClosed(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSessionRepo()
	user := seedUser(repo)

	token := "expired-session-token"
	id := util.SessionIDFromToken(token)
	repo.sessions[id] = &domain.Session{
		ID:        id,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Millisecond),
	}

	svc := NewSessionService(repo, 0, 0)
	session, got, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if session != nil || got != nil {
		t.Fatal("expired session must validate to the nil pair")
	}
	if _, exists := repo.sessions[id]; exists {
		t.Fatal("expired row should be deleted on read")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != id {
		t.Fatalf("expected one delete for %s, got %v", id, repo.deleted)
	}
}

func TestSessionSlidingRenewal(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSessionRepo()
	user := seedUser(repo)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := newSessionServiceAt(repo, base)
	token, _ := util.GenerateSessionToken()
	created, err := svc.Create(ctx, token, user.ID, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created.ExpiresAt.Equal(base.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expected 30-day lifetime, got %v", created.ExpiresAt)
	}

	// Day 20: inside the trailing 15-day window, expiry slides to now + 30d.
	day20 := base.Add(20 * 24 * time.Hour)
	svc.now = func() time.Time { return day20 }
	session, _, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	want := day20.Add(30 * 24 * time.Hour)
	if !session.ExpiresAt.Equal(want) {
		t.Fatalf("expected renewal to %v, got %v", want, session.ExpiresAt)
	}
	if repo.updateCalls != 1 {
		t.Fatalf("expected one renewal write, got %d", repo.updateCalls)
	}

	// One second later the renewed expiry is far away again; no second write.
	svc.now = func() time.Time { return day20.Add(time.Second) }
	session, _, err = svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !session.ExpiresAt.Equal(want) {
		t.Fatalf("expiry changed outside the renewal window: %v", session.ExpiresAt)
	}
	if repo.updateCalls != 1 {
		t.Fatalf("renewal write issued outside the window, total %d", repo.updateCalls)
	}
}

func TestSessionNoRenewalInFirstHalf(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSessionRepo()
	user := seedUser(repo)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := newSessionServiceAt(repo, base)
	token, _ := util.GenerateSessionToken()
	if _, err := svc.Create(ctx, token, user.ID, nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	svc.now = func() time.Time { return base.Add(10 * 24 * time.Hour) }
	session, _, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !session.ExpiresAt.Equal(base.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expiry must not move during the first half, got %v", session.ExpiresAt)
	}
	if repo.updateCalls != 0 {
		t.Fatalf("unexpected renewal writes: %d", repo.updateCalls)
	}
}

func TestInvalidateUserSessionsScopedToUser(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSessionRepo()
	alice := seedUser(repo)
	bob := &domain.User{ID: uuid.New(), ExternalID: "ext_2", Email: "b@example.com", Username: "bob"}
	repo.addUser(bob)

	svc := NewSessionService(repo, 0, 0)
	aliceTok1, _ := util.GenerateSessionToken()
	aliceTok2, _ := util.GenerateSessionToken()
	bobTok, _ := util.GenerateSessionToken()
	for _, pair := range []struct {
		token string
		user  uuid.UUID
	}{{aliceTok1, alice.ID}, {aliceTok2, alice.ID}, {bobTok, bob.ID}} {
		if _, err := svc.Create(ctx, pair.token, pair.user, nil); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	if err := svc.InvalidateUserSessions(ctx, alice.ID); err != nil {
		t.Fatalf("InvalidateUserSessions returned error: %v", err)
	}
	for _, token := range []string{aliceTok1, aliceTok2} {
		if session, _, _ := svc.Validate(ctx, token); session != nil {
			t.Fatal("alice session survived invalidate-all")
		}
	}
	if session, _, _ := svc.Validate(ctx, bobTok); session == nil {
		t.Fatal("bob's session should be unaffected")
	}
}

func TestSessionEmailUpdateRequestBinding(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSessionRepo()
	user := seedUser(repo)
	svc := NewSessionService(repo, 0, 0)

	token, _ := util.GenerateSessionToken()
	created, err := svc.Create(ctx, token, user.ID, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.SetEmailUpdateRequest(ctx, created.ID, "eur_1"); err != nil {
		t.Fatalf("SetEmailUpdateRequest returned error: %v", err)
	}
	session, _, _ := svc.Validate(ctx, token)
	if session.EmailUpdateRequestID == nil || *session.EmailUpdateRequestID != "eur_1" {
		t.Fatalf("expected pending request eur_1, got %v", session.EmailUpdateRequestID)
	}

	if err := svc.ClearEmailUpdateRequest(ctx, created.ID); err != nil {
		t.Fatalf("ClearEmailUpdateRequest returned error: %v", err)
	}
	session, _, _ = svc.Validate(ctx, token)
	if session.EmailUpdateRequestID != nil {
		t.Fatalf("expected pending request to be cleared, got %v", *session.EmailUpdateRequestID)
	}
}

func TestSessionValidateStorageFailure(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.findErr = context.DeadlineExceeded
	svc := NewSessionService(repo, 0, 0)

	_, _, err := svc.Validate(context.Background(), "any-token")
	if err == nil {
		t.Fatal("storage failures must propagate, not read as a missing session")
	}
}
