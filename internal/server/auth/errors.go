package auth

import "errors"

// Kind classifies gateway errors for the transport layer
type Kind int

const (
	// KindStorage is a persistence failure. The message is generic.
	KindStorage Kind = iota
	// KindValidation is user-correctable bad input
	KindValidation
	// KindConflict is a duplicate username or email
	KindConflict
	// KindAuth is bad credentials or an invalid token/session.
	// Messages never reveal which part was wrong.
	KindAuth
	// KindNotFound is an unknown profile
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	default:
		return "storage"
	}
}

// Error is returned by every Gateway operation.
// Message is safe to show to the client; Err is for logs only.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client-facing messages
const (
	MsgUsernameTaken      = "Username already taken"
	MsgUsernameReserved   = "Username is reserved"
	MsgEmailTaken         = "Email already registered"
	MsgInvalidCredentials = "Invalid email or password"
	MsgInvalidToken       = "Invalid or expired access token"
	MsgProfileNotFound    = "Profile not found"
	MsgInternal           = "Internal server error"
)

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error()}
}

func conflictError(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func authError(msg string, err error) *Error {
	return &Error{Kind: KindAuth, Message: msg, Err: err}
}

func notFoundError(err error) *Error {
	return &Error{Kind: KindNotFound, Message: MsgProfileNotFound, Err: err}
}

func storageError(err error) *Error {
	return &Error{Kind: KindStorage, Message: MsgInternal, Err: err}
}

// KindOf returns the Kind of err. Errors not produced by the gateway count as KindStorage.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// MessageOf returns the client-safe message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return MsgInternal
}
