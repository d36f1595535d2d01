package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const resetTokenBytes = 32

func NewRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewResetToken returns a URL-safe raw password-reset token with 32 bytes of
// entropy. Only HashToken(raw) is ever persisted.
func NewResetToken() (string, error) {
	return NewRandomString(resetTokenBytes)
}

func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
