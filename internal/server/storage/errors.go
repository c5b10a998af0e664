package storage

import "errors"

// Common storage errors
var (
	// ErrProfileNotFound indicates that profile was not found in storage
	ErrProfileNotFound = errors.New("profile not found")

	// ErrUsernameTaken indicates that a profile with this username (case-insensitive) already exists
	ErrUsernameTaken = errors.New("username already taken")

	// ErrReservedUsername indicates that the username is on the deny-list
	ErrReservedUsername = errors.New("username is reserved")

	// ErrCredentialNotFound indicates that no credential matches the email or uid
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrEmailTaken indicates that a credential with this email already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrSessionNotFound indicates that device session was not found
	ErrSessionNotFound = errors.New("session not found")
)
