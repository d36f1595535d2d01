package di

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Hryurt/dezztech-backend/internal/app"
	"github.com/Hryurt/dezztech-backend/internal/config"
	"github.com/Hryurt/dezztech-backend/internal/database"
	"github.com/Hryurt/dezztech-backend/internal/http/handler"
	"github.com/Hryurt/dezztech-backend/internal/http/middleware"
	"github.com/Hryurt/dezztech-backend/internal/http/router"
	"github.com/Hryurt/dezztech-backend/internal/observability"
	"github.com/Hryurt/dezztech-backend/internal/repository"
	"github.com/Hryurt/dezztech-backend/internal/security"
	"github.com/Hryurt/dezztech-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(provideLogger)

var RuntimeInfraSet = wire.NewSet(provideOpenDB, provideRedisClient, provideLimiter)

var RepositorySet = wire.NewSet(repository.NewRegistry, repository.NewTransactor)

var SecuritySet = wire.NewSet(provideHasher, provideTokenCodec)

var ServiceSet = wire.NewSet(
	provideNotifier,
	provideCredentialPolicy,
	service.NewAuthService,
	service.NewProfileService,
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewProfileHandler,
	middleware.NewAuthenticator,
	provideRouterDependencies,
	router.New,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(cfg.Env, cfg.LogLevel)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// provideLimiter prefers the shared Redis window so replicas enforce one
// budget; without Redis each process falls back to its own counters.
func provideLimiter(client *redis.Client) middleware.Limiter {
	if client == nil {
		return middleware.NewLocalFixedWindowLimiter()
	}
	return middleware.NewRedisFixedWindowLimiter(client, "ratelimit")
}

func provideHasher(cfg *config.Config) *security.PasswordHasher {
	return security.NewPasswordHasher(cfg.BcryptCost)
}

func provideTokenCodec(cfg *config.Config) *security.TokenCodec {
	return security.NewTokenCodec(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.JWTAccessTTL)
}

func provideNotifier(logger *slog.Logger) service.Notifier {
	return service.NewDevNotifier(logger)
}

func provideCredentialPolicy(cfg *config.Config) service.CredentialPolicy {
	return service.CredentialPolicy{
		OTPTTL:            cfg.OTPTTL,
		OTPResendCooldown: cfg.OTPResendCooldown,
		OTPMaxAttempts:    cfg.OTPMaxAttempts,
		ResetTokenTTL:     cfg.ResetTokenTTL,
	}
}

func provideRouterDependencies(
	auth *handler.AuthHandler,
	profile *handler.ProfileHandler,
	authn *middleware.Authenticator,
	limiter middleware.Limiter,
	tokens *security.TokenCodec,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		Auth:             auth,
		Profile:          profile,
		Authenticator:    authn,
		Limiter:          limiter,
		Tokens:           tokens,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:  cfg.APIRateLimitPerMin,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// MigrationRunner applies the schema without starting the HTTP server.
type MigrationRunner struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewMigrationRunner(db *gorm.DB, logger *slog.Logger) *MigrationRunner {
	return &MigrationRunner{db: db, logger: logger}
}

func (r *MigrationRunner) Run() error {
	r.logger.Info("running database migrations")
	return database.Migrate(r.db)
}
