package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateUserSendsSecretAndDecodes(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "usr_1",
			"email":          "new@example.com",
			"email_verified": false,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "shared-secret")
	user, err := client.CreateUser(context.Background(), "new@example.com", "hunter2hunter2", "203.0.113.7")
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if gotAuth != "shared-secret" {
		t.Fatalf("expected Authorization header to carry the secret, got %q", gotAuth)
	}
	if gotBody["email"] != "new@example.com" || gotBody["client_ip"] != "203.0.113.7" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if user.ID != "usr_1" || user.Email != "new@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestErrorResponseSurfacesCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"INCORRECT_PASSWORD"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	err := client.VerifyPassword(context.Background(), "usr_1", "wrong", "203.0.113.7")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if provErr.Status != http.StatusBadRequest || provErr.Code != CodeIncorrectPassword {
		t.Fatalf("unexpected error contents: %+v", provErr)
	}
	if !ErrorHasCode(err, CodeIncorrectPassword) {
		t.Fatal("ErrorHasCode should match the returned code")
	}
	if ErrorHasCode(err, CodeTooManyRequests) {
		t.Fatal("ErrorHasCode matched the wrong code")
	}
}

func TestMalformedErrorBodyDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	err := client.DeleteUser(context.Background(), "usr_1")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var provErr *Error
	if errors.As(err, &provErr) {
		t.Fatalf("non-JSON failure should not produce a coded error, got %+v", provErr)
	}
}

func TestCreatePasswordResetRequestReturnsCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/usr_9/password-reset-requests" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "prr_5",
			"user_id": "usr_9",
			"code":    "12345678",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	request, code, err := client.CreatePasswordResetRequest(context.Background(), "usr_9", "203.0.113.7")
	if err != nil {
		t.Fatalf("CreatePasswordResetRequest returned error: %v", err)
	}
	if request.ID != "prr_5" || request.UserID != "usr_9" {
		t.Fatalf("unexpected request: %+v", request)
	}
	if code != "12345678" {
		t.Fatalf("expected one-time code to be returned, got %q", code)
	}
}
