package domain

import (
	"errors"
	"fmt"
)

// Credential-flow failure kinds. Services return these (possibly wrapped);
// the transport layer maps them to status codes with errors.Is / errors.As.
// Anything outside this set is an internal persistence failure and must not
// reach clients with detail.
var (
	// ErrInvalidCredentials covers both unknown email and password mismatch
	// on login, and wrong current-password checks in profile flows. The two
	// login cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmailNotVerified     = errors.New("email not verified")
	ErrUserInactive         = errors.New("user account is inactive")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrUserNotFound         = errors.New("user not found")

	ErrOTPInvalid          = errors.New("invalid verification code")
	ErrOTPExpired          = errors.New("verification code has expired")
	ErrOTPAttemptsExceeded = errors.New("maximum verification attempts exceeded")

	ErrPasswordReuseNotAllowed = errors.New("new password cannot equal the current password")
	ErrInvalidOrExpiredToken   = errors.New("invalid or expired reset token")

	ErrEmailTaken           = errors.New("email is already in use")
	ErrNoPendingEmailChange = errors.New("no pending email change")

	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrLastSuperAdminProtected = errors.New("cannot deactivate the last active super admin")
)

// ResendCooldownError is returned when an OTP resend is requested before the
// cooldown has elapsed. RemainingSeconds is floored at zero, whole seconds.
type ResendCooldownError struct {
	RemainingSeconds int
}

func (e *ResendCooldownError) Error() string {
	return fmt.Sprintf("please wait %ds before requesting a new code", e.RemainingSeconds)
}
