package shared

import "context"

// Identity is the verified caller identity extracted from the bearer token.
// It travels in the request context; handlers and services never consult
// ambient global state for the current user.
type Identity struct {
	UserID  int64
	Subject string
	Name    string
	Email   string
	Role    string
}

// Roles recognised across the application.
const (
	RoleRequester = "requester"
	RoleOfficer   = "officer"
	RoleManager   = "manager"
	RoleAdmin     = "admin"
)

// IsManager reports whether the identity may resolve reviews and approvals.
func (id Identity) IsManager() bool {
	return id.Role == RoleManager || id.Role == RoleAdmin
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
