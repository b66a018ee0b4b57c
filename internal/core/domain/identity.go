package domain

import "context"

// Identity is the acting user, supplied by the caller.
// The engine does not authenticate; it only checks ownership.
type Identity struct {
	UserID string
}

type identityKey struct{}

// WithIdentity returns a context carrying the acting identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the acting identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}
