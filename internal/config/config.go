package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	JWTIssuer    string
	JWTAudience  string
	JWTSecret    string
	JWTAccessTTL time.Duration

	BcryptCost int

	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	OTPMaxAttempts    int
	ResetTokenTTL     time.Duration

	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		JWTIssuer:           getEnv("JWT_ISSUER", "dezztech-backend"),
		JWTAudience:         getEnv("JWT_AUDIENCE", "dezztech-backend-api"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		BcryptCost:          getEnvInt("BCRYPT_COST", 12),
		OTPMaxAttempts:      getEnvInt("OTP_MAX_ATTEMPTS", 5),
		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		CORSAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"JWT_ACCESS_TTL", "15m", &cfg.JWTAccessTTL},
		{"OTP_TTL", "10m", &cfg.OTPTTL},
		{"OTP_RESEND_COOLDOWN", "60s", &cfg.OTPResendCooldown},
		{"RESET_TOKEN_TTL", "15m", &cfg.ResetTokenTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dest = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 1h")
	}
	if c.OTPTTL <= 0 || c.OTPTTL > time.Hour {
		errs = append(errs, "OTP_TTL must be between 1s and 1h")
	}
	if c.OTPResendCooldown <= 0 || c.OTPResendCooldown > c.OTPTTL {
		errs = append(errs, "OTP_RESEND_COOLDOWN must be between 1s and OTP_TTL")
	}
	if c.OTPMaxAttempts <= 0 {
		errs = append(errs, "OTP_MAX_ATTEMPTS must be > 0")
	}
	if c.ResetTokenTTL <= 0 || c.ResetTokenTTL > 24*time.Hour {
		errs = append(errs, "RESET_TOKEN_TTL must be between 1s and 24h")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
