package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UsernamePattern defines the accepted username format.
// Latin letters, digits, underscore and dash; 3-20 characters.
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

const (
	// MinUsernameLen is the minimum username length
	MinUsernameLen = 3
	// MaxUsernameLen is the maximum username length
	MaxUsernameLen = 20
	// MinPasswordLen is the minimum password length
	MinPasswordLen = 6
	// MaxEmailLen follows the SMTP path limit
	MaxEmailLen = 254
)

// reservedUsernames collide with site routes or look official.
var reservedUsernames = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"www":      {},
	"mail":     {},
	"ftp":      {},
	"login":    {},
	"register": {},
	"auth":     {},
	"user":     {},
	"data":     {},
	"account":  {},
}

// ValidateUsername checks length and charset of a username as typed by the user.
// It does not check the reserved list, see IsReservedUsername.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen || len(username) > MaxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters long", MinUsernameLen, MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores and dashes")
	}

	return nil
}

// CanonicalUsername returns the case-folded form used for storage and lookups.
func CanonicalUsername(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}

// IsReservedUsername reports whether username is on the deny-list (case-insensitive).
func IsReservedUsername(username string) bool {
	_, ok := reservedUsernames[CanonicalUsername(username)]
	return ok
}

// ReservedUsernames returns a copy of the deny-list.
func ReservedUsernames() []string {
	out := make([]string, 0, len(reservedUsernames))
	for name := range reservedUsernames {
		out = append(out, name)
	}
	return out
}

// ValidatePassword checks the minimal password requirements.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address (no display name), up to MaxEmailLen bytes.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("email address is invalid")
	}

	return nil
}
