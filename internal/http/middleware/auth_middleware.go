package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/http/response"
	"github.com/Hryurt/dezztech-backend/internal/security"
	"github.com/Hryurt/dezztech-backend/internal/service"
)

type contextKey string

const userContextKey contextKey = "current_user"

// Authenticator resolves bearer tokens to full user records so downstream
// handlers see current account state, not a claims snapshot.
type Authenticator struct {
	tokens *security.TokenCodec
	auth   *service.AuthService
}

func NewAuthenticator(tokens *security.TokenCodec, auth *service.AuthService) *Authenticator {
	return &Authenticator{tokens: tokens, auth: auth}
}

// RequireUser rejects requests without a valid access token bound to an
// active account.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
			return
		}
		subject, ok := a.tokens.Verify(raw, time.Now().UTC())
		if !ok {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired access token", nil)
			return
		}
		user, err := a.auth.CurrentUser(r.Context(), subject)
		if err != nil {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired access token", nil)
			return
		}
		if !user.IsActive {
			response.Error(w, r, http.StatusForbidden, "USER_INACTIVE", "account is deactivated", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RequireRole gates a route on the role ladder. Must run after RequireUser.
func (a *Authenticator) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			if !user.Role.AtLeast(role) {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	return user, ok
}
