package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a row in the local directory. Credentials never live here; the
// identity provider keeps them under ExternalID.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ExternalID    string    `db:"external_id" json:"-"`
	Email         string    `db:"email" json:"email"`
	Username      string    `db:"username" json:"username"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
