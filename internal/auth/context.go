package auth

import "context"

// Identity is the authenticated caller of a request: the tenant whose
// mapping sessions it may touch, the token subject, and its role.
type Identity struct {
	TenantID string
	Subject  string
	Role     Role
}

type identityKey struct{}

// WithIdentity attaches the caller identity to the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity attached by the
// middleware, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
