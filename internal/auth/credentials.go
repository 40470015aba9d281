package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/pulseritas/storefront/internal/platform/errors"
)

// Credentials holds the single env-configured admin account.
type Credentials struct {
	userID       string
	email        string
	passwordHash []byte
}

// NewCredentials creates the admin credential set. The hash must be a
// bcrypt hash of the admin password.
func NewCredentials(userID, email, passwordHash string) (*Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if userID == "" || email == "" || passwordHash == "" {
		return nil, errors.New("admin user id, email, and password hash are required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, errors.New("admin password hash is not a bcrypt hash")
	}
	return &Credentials{
		userID:       userID,
		email:        email,
		passwordHash: []byte(passwordHash),
	}, nil
}

// Authenticate verifies the email and password and returns the admin user
// ID. A wrong email and a wrong password are indistinguishable to the
// caller.
func (c *Credentials) Authenticate(email, password string) (string, error) {
	if c == nil {
		return "", apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid credentials")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	// The password check runs regardless of the email match to keep the
	// timing of both failure cases alike.
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(c.email)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
	if !emailOK || passwordErr != nil {
		return "", apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid credentials")
	}
	return c.userID, nil
}

// HashPassword derives a bcrypt hash for provisioning the admin credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
