package security

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

// Password complexity rule, shared by every path that sets a password
// (registration, reset, change). Underscore counts as a symbol.
var (
	ErrWeakPassword = errors.New("password must be 8-64 characters and include uppercase, lowercase, digit, and special character")

	lowerPattern  = regexp.MustCompile(`[a-z]`)
	upperPattern  = regexp.MustCompile(`[A-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

func ValidatePasswordStrength(password string) error {
	if n := utf8.RuneCountInString(password); n < 8 || n > 64 {
		return ErrWeakPassword
	}
	if !lowerPattern.MatchString(password) ||
		!upperPattern.MatchString(password) ||
		!digitPattern.MatchString(password) ||
		!symbolPattern.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}
