package models

import "time"

// Profile is the public face of a user, addressed by username at /{username}
type Profile struct {
	CreatedAt    time.Time `json:"created_at"`    // registration time
	LastUpdated  time.Time `json:"last_updated"`  // last mutation (creation or view)
	Username     string    `json:"username"`      // canonical lowercase username
	DisplayAlias string    `json:"display_alias"` // name shown on the profile page
	UID          int64     `json:"uid"`           // numeric user id, shared with Credential
	ProfileViews int64     `json:"profile_views"` // number of public page views
}

// Credential holds login material for a user. It is stored apart from Profile
// so that leaking one collection does not expose the other.
type Credential struct {
	Email          string `json:"email"`           // lowercase, unique
	PasswordSecret string `json:"password_secret"` // argon2id PHC string
	UID            int64  `json:"uid"`
}

// DeviceSession binds a browser/device to a user for up to 24h (or 30d when remembered).
// The session token itself is never stored, only its SHA-256 digest.
type DeviceSession struct {
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	SessionID   string    `json:"session_id"`  // hex encoded 256-bit random id
	TokenHash   string    `json:"token_hash"`  // hex SHA-256 of the session token
	Fingerprint string    `json:"fingerprint"` // hex SHA-256 of client headers
	UID         int64     `json:"uid"`
	Remembered  bool      `json:"remembered"`
}

// Expired reports whether the session is no longer usable at now.
func (s *DeviceSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AccessToken is a short-lived bearer capability for a user.
type AccessToken struct {
	IssuedAt time.Time `json:"issued_at"`
	Token    string    `json:"token"`
	UID      int64     `json:"uid"`
}
