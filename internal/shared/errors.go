package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoPrincipal indicates a request without an authenticated user.
	ErrNoPrincipal = errors.New("no authenticated principal")
)
