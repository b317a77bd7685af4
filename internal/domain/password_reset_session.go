package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetSession tracks an in-progress password reset. It is keyed the
// same way as Session (hex SHA-256 of its own raw token) but is short-lived
// and never renewed. ExternalRequestID correlates to the identity provider's
// reset request, which owns code verification and attempt limits.
type PasswordResetSession struct {
	ID                string    `db:"id" json:"id"`
	ExternalRequestID string    `db:"external_request_id" json:"external_request_id"`
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	ExpiresAt         time.Time `db:"expires_at" json:"expires_at"`
	EmailVerified     bool      `db:"email_verified" json:"email_verified"`
}
