// Package api holds the JSON bodies exchanged between the brook server and its clients.
package api

import "time"

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	DisplayName    string `json:"displayName,omitempty"` // defaults to username as typed
	RememberDevice bool   `json:"rememberDevice,omitempty"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RememberDevice bool   `json:"rememberDevice,omitempty"`
}

// SessionGrant carries the material a device keeps after register or login
type SessionGrant struct {
	ExpiresAt    time.Time `json:"expiresAt"`
	SessionID    string    `json:"sessionId"`
	SessionToken string    `json:"sessionToken"` // secret, shown once
	AccessToken  string    `json:"accessToken"`
	Username     string    `json:"username"`
	RedirectURL  string    `json:"redirectUrl"` // account page with the access token
}

// RegisterResponse is returned with 201 by POST /auth/register
type RegisterResponse = SessionGrant

// LoginResponse is returned with 200 by POST /auth/login
type LoginResponse = SessionGrant

// UsernameCheckResponse answers GET /auth/check-username/{name}
type UsernameCheckResponse struct {
	Reason    string `json:"reason,omitempty"`
	Available bool   `json:"available"`
}

// VerifyDeviceRequest is the body of POST /auth/verify-device.
// The fingerprint is taken from request headers, not from the body.
type VerifyDeviceRequest struct {
	SessionID    string `json:"sessionId"`
	SessionToken string `json:"sessionToken"`
}

// VerifyDeviceResponse answers POST /auth/verify-device
type VerifyDeviceResponse struct {
	Username    string `json:"username,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	Valid       bool   `json:"valid"`
}

// LogoutRequest is the body of POST /auth/logout
type LogoutRequest struct {
	SessionID string `json:"sessionId"`
}

// LogoutResponse answers POST /auth/logout
type LogoutResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
}
