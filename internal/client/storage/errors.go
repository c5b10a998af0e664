package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that no session is cached for the server
	ErrSessionNotFound = errors.New("session not found")
)
