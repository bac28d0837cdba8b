package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoIdentity occurs when a protected handler runs without a verified caller.
	ErrNoIdentity = errors.New("no identity in request context")
)
