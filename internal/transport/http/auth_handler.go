package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trellis-app/trellis-backend/internal/domain"
	"github.com/trellis-app/trellis-backend/internal/service"
	"github.com/trellis-app/trellis-backend/internal/util"
)

type AuthHandler struct {
	auth    *service.AuthService
	resets  *service.PasswordResetService
	cookies *CookieManager
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService, resets *service.PasswordResetService, cookies *CookieManager) {
	handler := &AuthHandler{auth: auth, resets: resets, cookies: cookies}

	g := e.Group("/api/v1/auth")
	g.POST("/signup", handler.signup)
	g.POST("/login", handler.login)
	g.POST("/logout", handler.logout, RequireAuth)
	g.GET("/me", handler.me, RequireAuth)
	g.POST("/password", handler.updatePassword, RequireAuth)
	g.POST("/forgot-password", handler.forgotPassword)
	g.POST("/verify-password-reset-email", handler.verifyPasswordResetEmail)
	g.POST("/reset-password", handler.resetPassword)
	g.POST("/send-email-verification-code", handler.sendEmailVerificationCode, RequireAuth)
	g.POST("/verify-email", handler.verifyEmail, RequireAuth)
	g.POST("/send-email-update-code", handler.sendEmailUpdateCode, RequireAuth)
	g.POST("/update-email", handler.updateEmail, RequireAuth)
}

func toAuthUser(user *domain.User) AuthUser {
	return AuthUser{
		ID:            user.ID.String(),
		Email:         user.Email,
		Username:      user.Username,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

// serviceError maps service sentinels onto HTTP responses; anything unmapped
// is an internal error and deliberately unspecific.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidUsername):
		return c.JSON(http.StatusBadRequest, util.Error("please enter a valid username"))
	case errors.Is(err, service.ErrInvalidEmail):
		return c.JSON(http.StatusBadRequest, util.Error("please enter a valid email address"))
	case errors.Is(err, service.ErrInvalidPassword):
		return c.JSON(http.StatusBadRequest, util.Error("please enter a valid password"))
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusBadRequest, util.Error("invalid credentials"))
	case errors.Is(err, service.ErrEmailAlreadyUsed):
		return c.JSON(http.StatusBadRequest, util.Error("this email address is already used"))
	case errors.Is(err, service.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, util.Error("please use a stronger password"))
	case errors.Is(err, service.ErrIncorrectCode):
		return c.JSON(http.StatusBadRequest, util.Error("incorrect code"))
	case errors.Is(err, service.ErrCodeExpired):
		return c.JSON(http.StatusBadRequest, util.Error("your code expired, we sent a new one to your inbox"))
	case errors.Is(err, service.ErrRestartFlow):
		return c.JSON(http.StatusBadRequest, util.Error("please restart the process"))
	case errors.Is(err, service.ErrEmailNotVerified):
		return c.JSON(http.StatusForbidden, util.Error("email not verified"))
	case errors.Is(err, service.ErrNoEmailUpdatePending):
		return c.JSON(http.StatusForbidden, util.Error("no email update pending"))
	case errors.Is(err, service.ErrTooManyRequests):
		return c.JSON(http.StatusTooManyRequests, util.Error("please try again later"))
	default:
		c.Logger().Errorf("auth: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Error("an unknown error occurred, please try again later"))
	}
}

func (h *AuthHandler) signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.Signup(c.Request().Context(), req.Username, req.Email, req.Password, c.RealIP())
	if err != nil {
		return serviceError(c, err)
	}
	h.cookies.SetSessionToken(c, result.Token, result.Session.ExpiresAt)
	return c.JSON(http.StatusCreated, AuthUserResponse{User: toAuthUser(result.User)})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		return serviceError(c, err)
	}
	h.cookies.SetSessionToken(c, result.Token, result.Session.ExpiresAt)
	return c.JSON(http.StatusOK, AuthUserResponse{User: toAuthUser(result.User)})
}

func (h *AuthHandler) logout(c echo.Context) error {
	session, ok := CurrentSession(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("not authenticated"))
	}
	if err := h.auth.Logout(c.Request().Context(), session.ID); err != nil {
		return serviceError(c, err)
	}
	h.cookies.DeleteSessionToken(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) me(c echo.Context) error {
	user, _ := CurrentUser(c)
	return c.JSON(http.StatusOK, AuthUserResponse{User: toAuthUser(user)})
}

func (h *AuthHandler) updatePassword(c echo.Context) error {
	user, _ := CurrentUser(c)
	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.UpdatePassword(c.Request().Context(), user, req.Password, req.NewPassword, c.RealIP())
	if err != nil {
		return serviceError(c, err)
	}
	// Every other session is gone; rebind this device to the fresh one.
	h.cookies.SetSessionToken(c, result.Token, result.Session.ExpiresAt)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.ForgotPassword(c.Request().Context(), req.Email, c.RealIP())
	if err != nil {
		return serviceError(c, err)
	}
	h.cookies.SetPasswordResetToken(c, result.Token, result.Session.ExpiresAt)
	return c.NoContent(http.StatusNoContent)
}

// resetSession resolves the password_reset_session cookie the way the session
// middleware resolves the ordinary one: refresh on valid, clear on invalid.
func (h *AuthHandler) resetSession(c echo.Context) (*domain.PasswordResetSession, *domain.User, error) {
	token := readCookie(c, passwordResetCookieName)
	if token == "" {
		return nil, nil, nil
	}
	session, user, err := h.resets.Validate(c.Request().Context(), token)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		h.cookies.DeletePasswordResetToken(c)
		return nil, nil, nil
	}
	h.cookies.SetPasswordResetToken(c, token, session.ExpiresAt)
	return session, user, nil
}

func (h *AuthHandler) verifyPasswordResetEmail(c echo.Context) error {
	session, _, err := h.resetSession(c)
	if err != nil {
		return serviceError(c, err)
	}
	if session == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("not authenticated"))
	}
	if session.EmailVerified {
		return c.JSON(http.StatusForbidden, util.Error("already verified"))
	}

	var req VerificationCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if len(req.Code) != 8 {
		return c.JSON(http.StatusBadRequest, util.Error("please enter your verification code"))
	}
	if err := h.auth.VerifyPasswordResetEmail(c.Request().Context(), session, req.Code, c.RealIP()); err != nil {
		if errors.Is(err, service.ErrRestartFlow) {
			h.cookies.DeletePasswordResetToken(c)
		}
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	session, _, err := h.resetSession(c)
	if err != nil {
		return serviceError(c, err)
	}
	if session == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("not authenticated"))
	}

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.ResetPassword(c.Request().Context(), session, req.Password, c.RealIP())
	if err != nil {
		if errors.Is(err, service.ErrRestartFlow) {
			h.cookies.DeletePasswordResetToken(c)
		}
		return serviceError(c, err)
	}
	h.cookies.DeletePasswordResetToken(c)
	h.cookies.SetSessionToken(c, result.Token, result.Session.ExpiresAt)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) sendEmailVerificationCode(c echo.Context) error {
	user, _ := CurrentUser(c)
	if user.EmailVerified {
		return c.JSON(http.StatusForbidden, util.Error("email already verified"))
	}
	if err := h.auth.SendEmailVerificationCode(c.Request().Context(), user); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) verifyEmail(c echo.Context) error {
	user, _ := CurrentUser(c)
	if user.EmailVerified {
		return c.JSON(http.StatusForbidden, util.Error("email already verified"))
	}
	var req VerificationCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if len(req.Code) != 8 {
		return c.JSON(http.StatusBadRequest, util.Error("please enter your verification code"))
	}
	if err := h.auth.VerifyEmail(c.Request().Context(), user, req.Code); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) sendEmailUpdateCode(c echo.Context) error {
	user, _ := CurrentUser(c)
	session, _ := CurrentSession(c)
	var req EmailUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if err := h.auth.SendEmailUpdateCode(c.Request().Context(), session, user, req.Email); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) updateEmail(c echo.Context) error {
	user, _ := CurrentUser(c)
	session, _ := CurrentSession(c)
	if !user.EmailVerified {
		return c.JSON(http.StatusForbidden, util.Error("verify your current email first"))
	}
	var req VerificationCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if len(req.Code) != 8 {
		return c.JSON(http.StatusBadRequest, util.Error("please enter your verification code"))
	}
	newEmail, err := h.auth.UpdateEmail(c.Request().Context(), session, user, req.Code)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, EmailUpdateResponse{Email: newEmail})
}
