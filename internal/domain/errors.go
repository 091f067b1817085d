package domain

import "errors"

// Session errors
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrDecode          = errors.New("malformed token payload")
)

// Team errors
var (
	ErrOwnerImmutable = errors.New("team owner cannot be removed")
	ErrInvalidRole    = errors.New("invalid team role")
	ErrNoWorkspace    = errors.New("no team in the current workspace")
)
