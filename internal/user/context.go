package user

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller attached to a request context
// by the auth middleware.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const identityContextKey contextKey = "user_identity"

// NewContext returns a context carrying the authenticated identity
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext extracts the authenticated identity from the request context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}
