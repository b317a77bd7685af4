package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated browser session. The ID is the hex SHA-256
// digest of the raw cookie token; the raw token itself is never stored.
type Session struct {
	ID                   string    `db:"id" json:"id"`
	UserID               uuid.UUID `db:"user_id" json:"user_id"`
	ExpiresAt            time.Time `db:"expires_at" json:"expires_at"`
	EmailUpdateRequestID *string   `db:"email_update_request_id" json:"email_update_request_id,omitempty"`
}
