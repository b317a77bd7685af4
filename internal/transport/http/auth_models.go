package http

import "time"

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
}

// AuthUser is the sanitized user representation returned by auth endpoints.
type AuthUser struct {
	ID            string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email         string    `json:"email" example:"user@example.com"`
	Username      string    `json:"username" example:"trellisuser"`
	EmailVerified bool      `json:"email_verified" example:"true"`
	CreatedAt     time.Time `json:"created_at" example:"2026-01-01T12:00:00Z"`
}

// AuthUserResponse wraps a user object.
type AuthUserResponse struct {
	User AuthUser `json:"user"`
}

// SignupRequest carries the registration fields.
type SignupRequest struct {
	Username string `json:"username" example:"trellisuser"`
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"correct-horse-battery"`
}

// LoginRequest carries the login fields.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"correct-horse-battery"`
}

// UpdatePasswordRequest captures the payload for password changes.
type UpdatePasswordRequest struct {
	Password    string `json:"password" example:"old-password"`
	NewPassword string `json:"new_password" example:"new-password"`
}

// ForgotPasswordRequest starts a password-reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// VerificationCodeRequest carries an emailed one-time code.
type VerificationCodeRequest struct {
	Code string `json:"code" example:"12345678"`
}

// ResetPasswordRequest completes a password-reset flow.
type ResetPasswordRequest struct {
	Password string `json:"password" example:"new-password"`
}

// EmailUpdateRequest starts an email change for the current session.
type EmailUpdateRequest struct {
	Email string `json:"email" example:"new@example.com"`
}

// EmailUpdateResponse reports the adopted address.
type EmailUpdateResponse struct {
	Email string `json:"email" example:"new@example.com"`
}
