package service

import (
	"context"
	"log/slog"
	"time"
)

type VerificationCodeNotification struct {
	UserID    uint
	Email     string
	Code      string
	ExpiresAt time.Time
}

type PasswordResetNotification struct {
	UserID    uint
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Notifier is the delivery sink for secrets and account events. Calls are
// fire-and-forget: the credential state is already committed when a
// notification goes out, and delivery failure never rolls it back.
type Notifier interface {
	SendVerificationCode(ctx context.Context, n VerificationCodeNotification) error
	SendPasswordReset(ctx context.Context, n PasswordResetNotification) error
	SendPasswordChanged(ctx context.Context, userID uint, email string) error
}

// DevNotifier logs the secrets instead of delivering them. Development only.
type DevNotifier struct {
	logger *slog.Logger
}

func NewDevNotifier(logger *slog.Logger) *DevNotifier {
	return &DevNotifier{logger: logger}
}

func (n *DevNotifier) SendVerificationCode(ctx context.Context, note VerificationCodeNotification) error {
	n.logger.InfoContext(ctx, "verification code issued",
		"user_id", note.UserID,
		"email", note.Email,
		"code", note.Code,
		"expires_at", note.ExpiresAt,
	)
	return nil
}

func (n *DevNotifier) SendPasswordReset(ctx context.Context, note PasswordResetNotification) error {
	n.logger.InfoContext(ctx, "password reset token issued",
		"user_id", note.UserID,
		"email", note.Email,
		"token", note.Token,
		"expires_at", note.ExpiresAt,
	)
	return nil
}

func (n *DevNotifier) SendPasswordChanged(ctx context.Context, userID uint, email string) error {
	n.logger.InfoContext(ctx, "password changed notification",
		"user_id", userID,
		"email", email,
	)
	return nil
}
