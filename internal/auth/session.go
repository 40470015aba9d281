// Package auth handles admin login and session tokens for the storefront.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/pulseritas/storefront/internal/platform/errors"
)

// DefaultSessionTTL is the lifetime of a minted session token.
const DefaultSessionTTL = 12 * time.Hour

// SessionConfig defines the inputs for the session token issuer.
type SessionConfig struct {
	// Secret signs and verifies tokens. Required.
	Secret []byte
	// Issuer is stamped into and required from every token.
	Issuer string
	// TTL defaults to DefaultSessionTTL.
	TTL time.Duration
	// Clock overrides the wall clock, for tests.
	Clock func() time.Time
}

// Sessions mints and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
}

// NewSessions creates a session token issuer.
func NewSessions(cfg SessionConfig) (*Sessions, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Sessions{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl:    ttl,
		clock:  clock,
	}, nil
}

// Mint issues a signed session token for the user.
func (s *Sessions) Mint(userID string) (string, error) {
	if s == nil {
		return "", errors.New("sessions are not configured")
	}
	now := s.clock()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature, issuer, and expiry, and returns the
// user ID it was minted for.
func (s *Sessions) Verify(tokenString string) (string, error) {
	if s == nil {
		return "", apperrors.New(apperrors.CodeAuthSessionInvalid, "sessions are not configured")
	}
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.Wrap(apperrors.CodeAuthSessionExpired, "session expired", err)
		}
		return "", apperrors.Wrap(apperrors.CodeAuthSessionInvalid, "invalid session token", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", apperrors.New(apperrors.CodeAuthSessionInvalid, "invalid session token")
	}
	return claims.Subject, nil
}
