package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// ScopeEmailVerification marks tokens minted for verification links.
// Access tokens carry no scope. A token is only good for the scope it
// was minted with; callers must check the scope before trusting one.
const ScopeEmailVerification = "email_verification"

// TokenClaims represents the claims carried by a signed token.
type TokenClaims struct {
	Subject   string    `json:"sub"` // user email
	Scope     string    `json:"scope,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService defines the interface for token creation and validation.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(subject, scope string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}
