// Package router assembles the HTTP surface: public auth endpoints,
// authenticated profile endpoints, and the admin listing.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/http/handler"
	"github.com/Hryurt/dezztech-backend/internal/http/middleware"
	"github.com/Hryurt/dezztech-backend/internal/security"
)

// Dependencies carries everything the router needs wired in.
type Dependencies struct {
	Auth          *handler.AuthHandler
	Profile       *handler.ProfileHandler
	Authenticator *middleware.Authenticator
	Limiter       middleware.Limiter
	Tokens        *security.TokenCodec

	CORSOrigins      []string
	AuthRateLimitRPM int
	APIRateLimitRPM  int
}

// New builds the chi router for the API.
func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   dep.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	limiter := dep.Limiter
	if limiter == nil {
		limiter = middleware.NewLocalFixedWindowLimiter()
	}
	bypass := middleware.NewRequestBypassEvaluator(middleware.RequestBypassConfig{
		EnableInternalProbeBypass: true,
	}, dep.Tokens)

	// Auth endpoints are limited per client IP before any credentials exist.
	authLimit := middleware.NewDistributedRateLimiter(
		limiter, dep.AuthRateLimitRPM, time.Minute, middleware.FailOpen, "auth",
	).WithBypass(bypass)

	// Authenticated traffic is limited per subject, falling back to IP.
	apiLimit := middleware.NewDistributedRateLimiterWithKey(
		limiter, dep.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api",
		middleware.SubjectOrIPKeyFunc(dep.Tokens),
	).WithBypass(bypass)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(authLimit.Middleware())
			auth.Post("/register/start", dep.Auth.StartRegister)
			auth.Post("/register", dep.Auth.Register)
			auth.Post("/login", dep.Auth.Login)
			auth.Post("/verify-email", dep.Auth.VerifyEmail)
			auth.Post("/resend-otp", dep.Auth.ResendOTP)
			auth.Post("/forgot-password", dep.Auth.ForgotPassword)
			auth.Post("/reset-password", dep.Auth.ResetPassword)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(apiLimit.Middleware())
			protected.Use(dep.Authenticator.RequireUser)

			protected.Route("/users/me", func(me chi.Router) {
				me.Get("/", dep.Profile.Me)
				me.Patch("/password", dep.Profile.ChangePassword)
				me.Post("/email-change-request", dep.Profile.RequestEmailChange)
				me.Post("/email-change-verify", dep.Profile.ConfirmEmailChange)
				me.Delete("/", dep.Profile.DeactivateAccount)
			})

			protected.Route("/admin", func(admin chi.Router) {
				admin.Use(dep.Authenticator.RequireRole(domain.RoleAdmin))
				admin.Get("/users", dep.Profile.ListUsers)
			})
		})
	})

	return r
}
