package auth

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

type contextKey struct{}

// Identity is the verified caller attached to a request context.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

// Can reports whether the caller holds capability c.
func (i Identity) Can(c domain.Capability) bool {
	return domain.Can(i.Role, c)
}

// IdentityFromClaims converts verified claims into an Identity.
func IdentityFromClaims(c *Claims) Identity {
	return Identity{UserID: c.ID, Email: c.Email, Role: c.Role}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
