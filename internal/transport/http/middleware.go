package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trellis-app/trellis-backend/internal/domain"
	"github.com/trellis-app/trellis-backend/internal/service"
	"github.com/trellis-app/trellis-backend/internal/util"
)

const (
	contextUserKey    = "auth.user"
	contextSessionKey = "auth.session"
)

// SessionMiddleware resolves the session cookie on every request. A valid
// token puts the session and user into the request context and re-issues the
// cookie so its expiry tracks the (possibly renewed) session; anything else
// clears the cookie. It never rejects; route-level guards decide that.
func SessionMiddleware(sessions *service.SessionService, cookies *CookieManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := readCookie(c, sessionCookieName)
			if token == "" {
				return next(c)
			}
			session, user, err := sessions.Validate(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, util.Error("unable to validate session"))
			}
			if session == nil {
				cookies.DeleteSessionToken(c)
				return next(c)
			}
			cookies.SetSessionToken(c, token, session.ExpiresAt)
			c.Set(contextSessionKey, session)
			c.Set(contextUserKey, user)
			return next(c)
		}
	}
}

// RequireAuth guards routes that need an authenticated session.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentUser(c); !ok {
			return c.JSON(http.StatusUnauthorized, util.Error("not authenticated"))
		}
		return next(c)
	}
}

func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(contextUserKey).(*domain.User)
	return user, ok && user != nil
}

func CurrentSession(c echo.Context) (*domain.Session, bool) {
	session, ok := c.Get(contextSessionKey).(*domain.Session)
	return session, ok && session != nil
}
