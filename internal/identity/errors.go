package identity

import (
	"errors"
	"fmt"
)

// Error codes returned by the identity provider.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeNotAllowed        = "NOT_ALLOWED"
	CodeUserNotExists     = "USER_NOT_EXISTS"
	CodeEmailAlreadyUsed  = "EMAIL_ALREADY_USED"
	CodeWeakPassword      = "WEAK_PASSWORD"
	CodeIncorrectPassword = "INCORRECT_PASSWORD"
	CodeIncorrectCode     = "INCORRECT_CODE"
	CodeInvalidRequestID  = "INVALID_REQUEST_ID"
	CodeTooManyRequests   = "TOO_MANY_REQUESTS"
)

// Error is a structured failure from the identity provider: an HTTP status
// plus the machine-readable code from the response body.
type Error struct {
	Status int
	Code   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity provider error %d: %s", e.Status, e.Code)
}

// ErrorHasCode reports whether err is a provider error carrying the given code.
func ErrorHasCode(err error, code string) bool {
	var provErr *Error
	return errors.As(err, &provErr) && provErr.Code == code
}
