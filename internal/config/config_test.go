package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/dezztech?sslmode=disable")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.JWTAccessTTL != 15*time.Minute {
		t.Errorf("JWTAccessTTL = %v, want 15m", cfg.JWTAccessTTL)
	}
	if cfg.OTPTTL != 10*time.Minute {
		t.Errorf("OTPTTL = %v, want 10m", cfg.OTPTTL)
	}
	if cfg.OTPResendCooldown != 60*time.Second {
		t.Errorf("OTPResendCooldown = %v, want 60s", cfg.OTPResendCooldown)
	}
	if cfg.OTPMaxAttempts != 5 {
		t.Errorf("OTPMaxAttempts = %d, want 5", cfg.OTPMaxAttempts)
	}
	if cfg.ResetTokenTTL != 15*time.Minute {
		t.Errorf("ResetTokenTTL = %v, want 15m", cfg.ResetTokenTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestSplitCSVTrimsAndSkipsEmpty(t *testing.T) {
	got := splitCSV(" a.example.com , ,b.example.com,")
	if len(got) != 2 || got[0] != "a.example.com" || got[1] != "b.example.com" {
		t.Fatalf("splitCSV = %v", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("OTP_RESEND_COOLDOWN", "30s")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OTPTTL != 5*time.Minute {
		t.Errorf("OTPTTL = %v, want 5m", cfg.OTPTTL)
	}
	if cfg.OTPResendCooldown != 30*time.Second {
		t.Errorf("OTPResendCooldown = %v, want 30s", cfg.OTPResendCooldown)
	}
	if cfg.OTPMaxAttempts != 3 {
		t.Errorf("OTPMaxAttempts = %d, want 3", cfg.OTPMaxAttempts)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(t *testing.T)
		wantErr string
	}{
		{
			name:    "missing database url",
			mutate:  func(t *testing.T) { t.Setenv("DATABASE_URL", "") },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "short jwt secret",
			mutate:  func(t *testing.T) { t.Setenv("JWT_SECRET", "short") },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "cooldown longer than ttl",
			mutate:  func(t *testing.T) { t.Setenv("OTP_RESEND_COOLDOWN", "20m") },
			wantErr: "OTP_RESEND_COOLDOWN",
		},
		{
			name:    "unparseable duration",
			mutate:  func(t *testing.T) { t.Setenv("OTP_TTL", "banana") },
			wantErr: "OTP_TTL",
		},
		{
			name:    "zero max attempts",
			mutate:  func(t *testing.T) { t.Setenv("OTP_MAX_ATTEMPTS", "0") },
			wantErr: "OTP_MAX_ATTEMPTS",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			tc.mutate(t)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}
