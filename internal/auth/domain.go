package auth

import "errors"

// Claims carries the subset of token claims the application consumes. The
// identity provider owns sign-in, sessions and token issuance; this service
// only trusts a verified subject and its role claim.
type Claims struct {
	Subject string
	Role    string
	Name    string
	Email   string
}

var (
	// ErrTokenInvalid indicates a malformed, expired or badly signed token.
	ErrTokenInvalid = errors.New("auth: invalid token")
	// ErrNoToken indicates a request without bearer credentials.
	ErrNoToken = errors.New("auth: missing bearer token")
)
