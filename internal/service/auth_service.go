package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trellis-app/trellis-backend/internal/domain"
	"github.com/trellis-app/trellis-backend/internal/identity"
	"github.com/trellis-app/trellis-backend/internal/repository/ports"
	"github.com/trellis-app/trellis-backend/internal/util"
)

var (
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailAlreadyUsed     = errors.New("email already used")
	ErrWeakPassword         = errors.New("password too weak")
	ErrTooManyRequests      = errors.New("too many requests")
	ErrIncorrectCode        = errors.New("incorrect verification code")
	ErrCodeExpired          = errors.New("verification code expired, a new one was sent")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrRestartFlow          = errors.New("flow is no longer valid, restart the process")
	ErrNoEmailUpdatePending = errors.New("no email update pending on this session")
)

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

// IdentityProvider is the slice of the identity service the auth flows use.
// *identity.Client satisfies it; tests substitute a fake.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password, clientIP string) (*identity.User, error)
	DeleteUser(ctx context.Context, userID string) error
	VerifyPassword(ctx context.Context, userID, password, clientIP string) error
	UpdatePassword(ctx context.Context, userID, password, newPassword, clientIP string) error
	CreateEmailVerificationRequest(ctx context.Context, userID string) (*identity.EmailVerificationRequest, error)
	VerifyEmail(ctx context.Context, userID, code string) error
	CreateEmailUpdateRequest(ctx context.Context, userID, email string) (*identity.EmailUpdateRequest, error)
	VerifyNewEmail(ctx context.Context, requestID, code string) (string, error)
	CreatePasswordResetRequest(ctx context.Context, userID, clientIP string) (*identity.PasswordResetRequest, string, error)
	VerifyPasswordResetEmail(ctx context.Context, requestID, code, clientIP string) error
	ResetPassword(ctx context.Context, requestID, password, clientIP string) error
}

// CodeSender delivers one-time codes the identity provider hands back.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// AuthService sequences identity-provider calls with the local directory and
// the two session stores. It owns no persistence of its own.
type AuthService struct {
	users    ports.UserRepository
	sessions *SessionService
	resets   *PasswordResetService
	provider IdentityProvider
	mailer   CodeSender
}

func NewAuthService(
	users ports.UserRepository,
	sessions *SessionService,
	resets *PasswordResetService,
	provider IdentityProvider,
	mailer CodeSender,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		resets:   resets,
		provider: provider,
		mailer:   mailer,
	}
}

// AuthResult carries a freshly issued session plus the raw token the cookie
// layer must hand to the client. The token exists nowhere else.
type AuthResult struct {
	User    *domain.User
	Session *domain.Session
	Token   string
}

// ResetResult is the reset-flow sibling of AuthResult.
type ResetResult struct {
	User    *domain.User
	Session *domain.PasswordResetSession
	Token   string
}

func validEmailInput(email string) bool {
	return len(email) < 256 && emailPattern.MatchString(email)
}

func validPasswordInput(password string) bool {
	return len(password) >= 8 && len(password) < 128
}

func validUsernameInput(username string) bool {
	return len(username) >= 3 && len(username) < 32 && strings.TrimSpace(username) == username
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// mapProviderErr converts a coded identity-provider failure to a service
// sentinel; unmapped codes and transport failures pass through unchanged.
func mapProviderErr(err error, codes map[string]error) error {
	var provErr *identity.Error
	if errors.As(err, &provErr) {
		if mapped, ok := codes[provErr.Code]; ok {
			return mapped
		}
	}
	return err
}

// Signup registers the credentials with the identity provider, mirrors the
// account into the local directory, mails the email-verification code and
// issues a session. The provider user is deleted again if the local insert
// fails, so the two directories cannot drift.
func (s *AuthService) Signup(ctx context.Context, username, email, password, clientIP string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if !validUsernameInput(username) {
		return nil, ErrInvalidUsername
	}
	if !validEmailInput(email) {
		return nil, ErrInvalidEmail
	}
	if !validPasswordInput(password) {
		return nil, ErrInvalidPassword
	}

	providerUser, err := s.provider.CreateUser(ctx, email, password, clientIP)
	if err != nil {
		return nil, mapProviderErr(err, map[string]error{
			identity.CodeEmailAlreadyUsed: ErrEmailAlreadyUsed,
			identity.CodeWeakPassword:     ErrWeakPassword,
			identity.CodeTooManyRequests:  ErrTooManyRequests,
		})
	}

	user, err := s.users.Create(ctx, providerUser.ID, email, username)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrEmailAlreadyUsed
		}
		if delErr := s.provider.DeleteUser(ctx, providerUser.ID); delErr != nil {
			err = fmt.Errorf("%w (orphaned provider user %s: %v)", err, providerUser.ID, delErr)
		}
		return nil, err
	}

	if verification, reqErr := s.provider.CreateEmailVerificationRequest(ctx, user.ExternalID); reqErr == nil {
		_ = s.mailer.SendVerificationCode(ctx, user.Email, verification.Code)
	}
	// A failed code delivery does not block signup; the user can ask for a
	// new code once logged in.
	return s.issueSession(ctx, user)
}

// Login verifies the password with the identity provider and issues a session.
// A missing account and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmailInput(email) {
		return nil, ErrInvalidEmail
	}
	if !validPasswordInput(password) {
		return nil, ErrInvalidPassword
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.provider.VerifyPassword(ctx, user.ExternalID, password, clientIP); err != nil {
		return nil, mapProviderErr(err, map[string]error{
			identity.CodeIncorrectPassword: ErrInvalidCredentials,
			identity.CodeUserNotExists:     ErrInvalidCredentials,
			identity.CodeTooManyRequests:   ErrTooManyRequests,
		})
	}
	return s.issueSession(ctx, user)
}

// Logout invalidates the single session presented by the request.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Invalidate(ctx, sessionID)
}

// UpdatePassword changes the credential at the provider, then invalidates
// every session the user holds and issues a fresh one for this device.
func (s *AuthService) UpdatePassword(ctx context.Context, user *domain.User, password, newPassword, clientIP string) (*AuthResult, error) {
	if !validPasswordInput(password) || !validPasswordInput(newPassword) {
		return nil, ErrInvalidPassword
	}
	if err := s.provider.UpdatePassword(ctx, user.ExternalID, password, newPassword, clientIP); err != nil {
		return nil, mapProviderErr(err, map[string]error{
			identity.CodeIncorrectPassword: ErrInvalidCredentials,
			identity.CodeWeakPassword:      ErrWeakPassword,
			identity.CodeTooManyRequests:   ErrTooManyRequests,
		})
	}
	if err := s.sessions.InvalidateUserSessions(ctx, user.ID); err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// ForgotPassword opens a reset request at the provider, mails the code and
// starts a short-lived reset session.
func (s *AuthService) ForgotPassword(ctx context.Context, email, clientIP string) (*ResetResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmailInput(email) {
		return nil, ErrInvalidEmail
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	request, code, err := s.provider.CreatePasswordResetRequest(ctx, user.ExternalID, clientIP)
	if err != nil {
		return nil, mapProviderErr(err, map[string]error{
			identity.CodeUserNotExists:   ErrInvalidCredentials,
			identity.CodeTooManyRequests: ErrTooManyRequests,
		})
	}

	token, err := util.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	session, err := s.resets.Create(ctx, token, user.ID, request.ID)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendVerificationCode(ctx, user.Email, code); err != nil {
		return nil, err
	}
	return &ResetResult{User: user, Session: session, Token: token}, nil
}

// VerifyPasswordResetEmail checks the emailed code against the provider and
// marks the reset session verified. A stale or exhausted provider request
// invalidates the session; the caller should clear the cookie on
// ErrRestartFlow.
func (s *AuthService) VerifyPasswordResetEmail(ctx context.Context, session *domain.PasswordResetSession, code, clientIP string) error {
	if err := s.provider.VerifyPasswordResetEmail(ctx, session.ExternalRequestID, code, clientIP); err != nil {
		if identity.ErrorHasCode(err, identity.CodeNotFound) || identity.ErrorHasCode(err, identity.CodeTooManyRequests) {
			if invErr := s.resets.Invalidate(ctx, session.ID); invErr != nil {
				return invErr
			}
			return ErrRestartFlow
		}
		return mapProviderErr(err, map[string]error{
			identity.CodeIncorrectCode: ErrIncorrectCode,
		})
	}
	return s.resets.MarkEmailVerified(ctx, session.ID)
}

// ResetPassword completes the flow. It refuses sessions whose email was never
// verified, then resets the credential at the provider, marks the local user
// verified, discards the user's reset sessions and logs the user in. The
// steps are separate idempotent writes; a crash in between leaves at most a
// stale reset session that the next validate lazily expires.
func (s *AuthService) ResetPassword(ctx context.Context, session *domain.PasswordResetSession, password, clientIP string) (*AuthResult, error) {
	if !session.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !validPasswordInput(password) {
		return nil, ErrInvalidPassword
	}

	if err := s.provider.ResetPassword(ctx, session.ExternalRequestID, password, clientIP); err != nil {
		return nil, mapProviderErr(err, map[string]error{
			identity.CodeInvalidRequestID: ErrRestartFlow,
			identity.CodeWeakPassword:     ErrWeakPassword,
			identity.CodeTooManyRequests:  ErrTooManyRequests,
		})
	}

	if err := s.users.SetEmailVerified(ctx, session.UserID); err != nil {
		return nil, err
	}
	if err := s.resets.InvalidateUserSessions(ctx, session.UserID); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// SendEmailVerificationCode asks the provider for a fresh code and mails it.
func (s *AuthService) SendEmailVerificationCode(ctx context.Context, user *domain.User) error {
	request, err := s.provider.CreateEmailVerificationRequest(ctx, user.ExternalID)
	if err != nil {
		return mapProviderErr(err, map[string]error{
			identity.CodeTooManyRequests: ErrTooManyRequests,
		})
	}
	return s.mailer.SendVerificationCode(ctx, user.Email, request.Code)
}

// VerifyEmail confirms the signup verification code. An expired code is
// reissued and mailed immediately so the user is never stuck.
func (s *AuthService) VerifyEmail(ctx context.Context, user *domain.User, code string) error {
	if err := s.provider.VerifyEmail(ctx, user.ExternalID, code); err != nil {
		if identity.ErrorHasCode(err, identity.CodeNotAllowed) {
			request, reqErr := s.provider.CreateEmailVerificationRequest(ctx, user.ExternalID)
			if reqErr != nil {
				return reqErr
			}
			if sendErr := s.mailer.SendVerificationCode(ctx, user.Email, request.Code); sendErr != nil {
				return sendErr
			}
			return ErrCodeExpired
		}
		return mapProviderErr(err, map[string]error{
			identity.CodeIncorrectCode:   ErrIncorrectCode,
			identity.CodeTooManyRequests: ErrTooManyRequests,
		})
	}
	return s.users.SetEmailVerified(ctx, user.ID)
}

// SendEmailUpdateCode opens an email-update request at the provider, binds it
// to the presenting session and mails the code to the new address. The
// binding is per session: the user's other devices are unaffected.
func (s *AuthService) SendEmailUpdateCode(ctx context.Context, session *domain.Session, user *domain.User, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if !validEmailInput(newEmail) {
		return ErrInvalidEmail
	}
	request, err := s.provider.CreateEmailUpdateRequest(ctx, user.ExternalID, newEmail)
	if err != nil {
		return mapProviderErr(err, map[string]error{
			identity.CodeEmailAlreadyUsed: ErrEmailAlreadyUsed,
			identity.CodeTooManyRequests:  ErrTooManyRequests,
		})
	}
	if err := s.sessions.SetEmailUpdateRequest(ctx, session.ID, request.ID); err != nil {
		return err
	}
	return s.mailer.SendVerificationCode(ctx, request.Email, request.Code)
}

// UpdateEmail completes the update bound to this session: the provider
// verifies the code and returns the now-verified address, which replaces the
// directory email. Returns the new address.
func (s *AuthService) UpdateEmail(ctx context.Context, session *domain.Session, user *domain.User, code string) (string, error) {
	if session.EmailUpdateRequestID == nil {
		return "", ErrNoEmailUpdatePending
	}
	newEmail, err := s.provider.VerifyNewEmail(ctx, *session.EmailUpdateRequestID, code)
	if err != nil {
		return "", mapProviderErr(err, map[string]error{
			identity.CodeInvalidRequestID: ErrRestartFlow,
			identity.CodeIncorrectCode:    ErrIncorrectCode,
			identity.CodeTooManyRequests:  ErrRestartFlow,
		})
	}
	if err := s.users.UpdateEmailAndSetVerified(ctx, user.ID, newEmail); err != nil {
		return "", err
	}
	if err := s.sessions.ClearEmailUpdateRequest(ctx, session.ID); err != nil {
		return "", err
	}
	return newEmail, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := util.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Create(ctx, token, user.ID, nil)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: session, Token: token}, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
