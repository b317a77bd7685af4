package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	sessionCookieName       = "session"
	passwordResetCookieName = "password_reset_session"
)

// CookieManager owns the transport cookies carrying raw session tokens. The
// core never reads cookies itself; handlers extract the token and pass it to
// the validators.
type CookieManager struct {
	secure bool
}

// NewCookieManager returns a manager; secure should be true everywhere except
// local development so the cookies are HTTPS-only.
func NewCookieManager(secure bool) *CookieManager {
	return &CookieManager{secure: secure}
}

func (m *CookieManager) set(c echo.Context, name, value string, expires time.Time, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
		MaxAge:   maxAge,
	})
}

func (m *CookieManager) SetSessionToken(c echo.Context, token string, expiresAt time.Time) {
	m.set(c, sessionCookieName, token, expiresAt, 0)
}

func (m *CookieManager) DeleteSessionToken(c echo.Context) {
	m.set(c, sessionCookieName, "", time.Time{}, -1)
}

func (m *CookieManager) SetPasswordResetToken(c echo.Context, token string, expiresAt time.Time) {
	m.set(c, passwordResetCookieName, token, expiresAt, 0)
}

func (m *CookieManager) DeletePasswordResetToken(c echo.Context) {
	m.set(c, passwordResetCookieName, "", time.Time{}, -1)
}

// readCookie returns the named cookie value, or "" when absent.
func readCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
