package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the external identity provider, the system of record for
// credentials, verification codes and reset requests. The local directory
// references provider users by their id.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// User is the provider's view of an account. Passwords and 2FA credentials
// never leave the provider.
type User struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Email          string    `json:"email"`
	EmailVerified  bool      `json:"email_verified"`
	TOTPRegistered bool      `json:"totp_registered"`
}

type EmailVerificationRequest struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code"`
}

type EmailUpdateRequest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
}

type PasswordResetRequest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr != nil || errBody.Error == "" {
			return fmt.Errorf("identity provider returned unexpected status %d", resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Code: errBody.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity provider response: %w", err)
	}
	return nil
}

func (c *Client) CreateUser(ctx context.Context, email, password, clientIP string) (*User, error) {
	body := map[string]any{
		"email":     email,
		"password":  password,
		"client_ip": clientIP,
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil)
}

// VerifyPassword checks a login attempt. The provider enforces its own
// attempt limits and reports TOO_MANY_REQUESTS when they trip.
func (c *Client) VerifyPassword(ctx context.Context, userID, password, clientIP string) error {
	body := map[string]any{
		"password":  password,
		"client_ip": clientIP,
	}
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/verify-password", body, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, userID, password, newPassword, clientIP string) error {
	body := map[string]any{
		"password":     password,
		"new_password": newPassword,
		"client_ip":    clientIP,
	}
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/update-password", body, nil)
}

func (c *Client) CreateEmailVerificationRequest(ctx context.Context, userID string) (*EmailVerificationRequest, error) {
	var request EmailVerificationRequest
	err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/email-verification-request", nil, &request)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (c *Client) VerifyEmail(ctx context.Context, userID, code string) error {
	body := map[string]any{"code": code}
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/verify-email", body, nil)
}

func (c *Client) CreateEmailUpdateRequest(ctx context.Context, userID, email string) (*EmailUpdateRequest, error) {
	body := map[string]any{"email": email}
	var request EmailUpdateRequest
	err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/email-update-requests", body, &request)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// VerifyNewEmail completes an email-update request and returns the verified
// address the directory should adopt.
func (c *Client) VerifyNewEmail(ctx context.Context, requestID, code string) (string, error) {
	body := map[string]any{
		"request_id": requestID,
		"code":       code,
	}
	var result struct {
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodPost, "/verify-new-email", body, &result); err != nil {
		return "", err
	}
	return result.Email, nil
}

// CreatePasswordResetRequest opens a reset flow for the user and returns the
// request plus the one-time code the user must be sent.
func (c *Client) CreatePasswordResetRequest(ctx context.Context, userID, clientIP string) (*PasswordResetRequest, string, error) {
	body := map[string]any{"client_ip": clientIP}
	var result struct {
		PasswordResetRequest
		Code string `json:"code"`
	}
	err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/password-reset-requests", body, &result)
	if err != nil {
		return nil, "", err
	}
	return &result.PasswordResetRequest, result.Code, nil
}

func (c *Client) VerifyPasswordResetEmail(ctx context.Context, requestID, code, clientIP string) error {
	body := map[string]any{
		"code":      code,
		"client_ip": clientIP,
	}
	return c.do(ctx, http.MethodPost, "/password-reset-requests/"+url.PathEscape(requestID)+"/verify-email", body, nil)
}

func (c *Client) ResetPassword(ctx context.Context, requestID, password, clientIP string) error {
	body := map[string]any{
		"request_id": requestID,
		"password":   password,
		"client_ip":  clientIP,
	}
	return c.do(ctx, http.MethodPost, "/reset-password", body, nil)
}
