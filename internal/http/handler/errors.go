package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/http/response"
	"github.com/Hryurt/dezztech-backend/internal/security"
)

// writeDomainError maps the credential-flow error taxonomy onto HTTP. Anything
// outside the taxonomy is an internal error and deliberately carries no detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldown *domain.ResendCooldownError
	if errors.As(err, &cooldown) {
		retryAfter := cooldown.RemainingSeconds
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		response.Error(w, r, http.StatusTooManyRequests, "OTP_RESEND_COOLDOWN", err.Error(),
			map[string]any{"retry_after_seconds": cooldown.RemainingSeconds})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	case errors.Is(err, domain.ErrEmailNotVerified):
		response.Error(w, r, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "email address is not verified", nil)
	case errors.Is(err, domain.ErrUserInactive):
		response.Error(w, r, http.StatusForbidden, "USER_INACTIVE", "account is deactivated", nil)
	case errors.Is(err, domain.ErrEmailAlreadyVerified):
		response.Error(w, r, http.StatusConflict, "EMAIL_ALREADY_VERIFIED", "email address is already verified", nil)
	case errors.Is(err, domain.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	case errors.Is(err, domain.ErrOTPInvalid):
		response.Error(w, r, http.StatusBadRequest, "OTP_INVALID", "verification code is incorrect", nil)
	case errors.Is(err, domain.ErrOTPExpired):
		response.Error(w, r, http.StatusBadRequest, "OTP_EXPIRED", "verification code has expired", nil)
	case errors.Is(err, domain.ErrOTPAttemptsExceeded):
		response.Error(w, r, http.StatusTooManyRequests, "OTP_ATTEMPTS_EXCEEDED", "too many verification attempts, request a new code", nil)
	case errors.Is(err, security.ErrWeakPassword):
		response.Error(w, r, http.StatusBadRequest, "WEAK_PASSWORD", err.Error(), nil)
	case errors.Is(err, domain.ErrPasswordReuseNotAllowed):
		response.Error(w, r, http.StatusBadRequest, "PASSWORD_REUSE_NOT_ALLOWED", "new password must differ from the current one", nil)
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		response.Error(w, r, http.StatusBadRequest, "INVALID_OR_EXPIRED_TOKEN", "reset token is invalid or expired", nil)
	case errors.Is(err, domain.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, "EMAIL_TAKEN", "email address is not available", nil)
	case errors.Is(err, domain.ErrNoPendingEmailChange):
		response.Error(w, r, http.StatusConflict, "NO_PENDING_EMAIL_CHANGE", "no email change is pending", nil)
	case errors.Is(err, domain.ErrInsufficientPermissions):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
	case errors.Is(err, domain.ErrLastSuperAdminProtected):
		response.Error(w, r, http.StatusConflict, "LAST_SUPER_ADMIN_PROTECTED", "the last active super admin cannot be deactivated", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
