package auth

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/pulseritas/storefront/internal/platform/errors"
)

func TestSessionsMintAndVerify(t *testing.T) {
	t.Parallel()

	sessions, err := NewSessions(SessionConfig{
		Secret: []byte("test-secret"),
		Issuer: "pulseritas",
	})
	if err != nil {
		t.Fatalf("create sessions: %v", err)
	}

	token, err := sessions.Mint("admin-1")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	userID, err := sessions.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if userID != "admin-1" {
		t.Fatalf("verified user = %q, want %q", userID, "admin-1")
	}
}

func TestSessionsRejectExpiredToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	sessions, err := NewSessions(SessionConfig{
		Secret: []byte("test-secret"),
		Issuer: "pulseritas",
		TTL:    time.Hour,
		Clock:  func() time.Time { return clock() },
	})
	if err != nil {
		t.Fatalf("create sessions: %v", err)
	}

	token, err := sessions.Mint("admin-1")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	now = now.Add(time.Hour + time.Minute)
	_, err = sessions.Verify(token)
	if !errors.Is(err, apperrors.New(apperrors.CodeAuthSessionExpired, "")) {
		t.Fatalf("verify expired token err = %v, want code %s", err, apperrors.CodeAuthSessionExpired)
	}
}

func TestSessionsRejectForeignSignature(t *testing.T) {
	t.Parallel()

	minter, err := NewSessions(SessionConfig{Secret: []byte("secret-a"), Issuer: "pulseritas"})
	if err != nil {
		t.Fatalf("create minter: %v", err)
	}
	verifier, err := NewSessions(SessionConfig{Secret: []byte("secret-b"), Issuer: "pulseritas"})
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}

	token, err := minter.Mint("admin-1")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, apperrors.New(apperrors.CodeAuthSessionInvalid, "")) {
		t.Fatalf("verify foreign token err = %v, want code %s", err, apperrors.CodeAuthSessionInvalid)
	}
}

func TestSessionsRejectWrongIssuer(t *testing.T) {
	t.Parallel()

	minter, err := NewSessions(SessionConfig{Secret: []byte("secret"), Issuer: "someone-else"})
	if err != nil {
		t.Fatalf("create minter: %v", err)
	}
	verifier, err := NewSessions(SessionConfig{Secret: []byte("secret"), Issuer: "pulseritas"})
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}

	token, err := minter.Mint("admin-1")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected wrong-issuer token to be rejected")
	}
}

func TestNewSessionsRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewSessions(SessionConfig{}); err == nil {
		t.Fatal("expected missing secret error")
	}
}

func TestCredentialsAuthenticate(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	creds, err := NewCredentials("admin-1", "Admin@Pulseritas.Test", hash)
	if err != nil {
		t.Fatalf("create credentials: %v", err)
	}

	userID, err := creds.Authenticate("admin@pulseritas.test", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if userID != "admin-1" {
		t.Fatalf("authenticated user = %q, want %q", userID, "admin-1")
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "admin@pulseritas.test", "wrong"},
		{"wrong email", "intruder@pulseritas.test", "correct horse"},
		{"empty password", "admin@pulseritas.test", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := creds.Authenticate(tc.email, tc.password)
			if !errors.Is(err, apperrors.New(apperrors.CodeAuthInvalidCredentials, "")) {
				t.Fatalf("err = %v, want code %s", err, apperrors.CodeAuthInvalidCredentials)
			}
		})
	}
}

func TestNewCredentialsRejectsPlaintextHash(t *testing.T) {
	t.Parallel()

	if _, err := NewCredentials("admin-1", "admin@pulseritas.test", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected non-bcrypt hash to be rejected")
	}
}
