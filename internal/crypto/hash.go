package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// TokenSize is the number of random bytes in session ids and session tokens (256 bits)
const TokenSize = 32

// RandomToken returns TokenSize random bytes, hex-encoded (64 chars).
func RandomToken() (string, error) {
	b := make([]byte, TokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 digest of a secret token.
// Only digests are persisted, never the token itself.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken compares token against a stored digest in constant time.
func VerifyToken(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// Fingerprint derives a device fingerprint from User-Agent, Accept-Language and
// Accept-Encoding. All three are client controlled, so the result only detects
// casual session reuse on another browser; it is not a security boundary.
func Fingerprint(userAgent, acceptLanguage, acceptEncoding string) string {
	parts := []string{
		strings.TrimSpace(userAgent),
		strings.TrimSpace(acceptLanguage),
		strings.TrimSpace(acceptEncoding),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// EqualFingerprint compares two fingerprints in constant time.
func EqualFingerprint(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
