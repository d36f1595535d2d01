package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/repository"
	"github.com/Hryurt/dezztech-backend/internal/security"
)

// CredentialPolicy carries the configured lifecycle constants. The services
// read these; they never derive them.
type CredentialPolicy struct {
	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	OTPMaxAttempts    int
	ResetTokenTTL     time.Duration
}

type StartRegisterResult struct {
	AlreadyRegistered bool
}

type RegisterResult struct {
	UserID  uint
	OTPSent bool
}

type ResendResult struct {
	CooldownSeconds int
}

type AuthService struct {
	reg      *repository.Registry
	tx       repository.Transactor
	hasher   *security.PasswordHasher
	tokens   *security.TokenCodec
	notifier Notifier
	policy   CredentialPolicy
	logger   *slog.Logger
	now      func() time.Time

	// dummyHash keeps the login path's bcrypt cost identical whether or not
	// the email exists.
	dummyHash string
}

func NewAuthService(
	reg *repository.Registry,
	tx repository.Transactor,
	hasher *security.PasswordHasher,
	tokens *security.TokenCodec,
	notifier Notifier,
	policy CredentialPolicy,
	logger *slog.Logger,
) *AuthService {
	dummyHash, err := hasher.Hash("equalize-timing-shape")
	if err != nil {
		dummyHash = ""
	}
	return &AuthService{
		reg:       reg,
		tx:        tx,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
		dummyHash: dummyHash,
	}
}

// StartRegister probes registration state for an email. A verified account
// is a conflict; an unverified one flags the caller to resume verification.
func (s *AuthService) StartRegister(ctx context.Context, email string) (StartRegisterResult, error) {
	user, err := s.reg.Users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return StartRegisterResult{AlreadyRegistered: false}, nil
		}
		return StartRegisterResult{}, fmt.Errorf("find user: %w", err)
	}
	if user.IsVerified() {
		return StartRegisterResult{}, domain.ErrEmailAlreadyVerified
	}
	return StartRegisterResult{AlreadyRegistered: true}, nil
}

// Register creates an unverified user and issues a verification code. When
// the email belongs to an existing unverified user, a fresh code is issued
// instead of erroring, so registration retries with the same email are safe.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (RegisterResult, error) {
	now := s.now().UTC()

	var (
		flowErr error
		result  RegisterResult
		note    *VerificationCodeNotification
	)
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := reg.Users.FindByEmail(email)
		switch {
		case err == nil:
			if user.IsVerified() {
				flowErr = domain.ErrEmailAlreadyVerified
				return nil
			}
		case errors.Is(err, repository.ErrUserNotFound):
			if vErr := security.ValidatePasswordStrength(password); vErr != nil {
				flowErr = vErr
				return nil
			}
			hash, hErr := s.hasher.Hash(password)
			if hErr != nil {
				return fmt.Errorf("hash password: %w", hErr)
			}
			user = &domain.User{
				Email:        email,
				PasswordHash: hash,
				Name:         name,
				Role:         domain.RoleUser,
				IsActive:     true,
			}
			if cErr := reg.Users.Create(user); cErr != nil {
				return fmt.Errorf("create user: %w", cErr)
			}
		default:
			return fmt.Errorf("find user: %w", err)
		}

		code, err := s.issueCode(reg, user.ID, now)
		if err != nil {
			return err
		}
		result = RegisterResult{UserID: user.ID, OTPSent: true}
		note = &VerificationCodeNotification{UserID: user.ID, Email: user.Email, Code: code.Code, ExpiresAt: code.ExpiresAt}
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}
	if flowErr != nil {
		return RegisterResult{}, flowErr
	}
	s.deliverCode(ctx, note)
	return result, nil
}

// VerifyEmail runs the OTP state machine against the latest unused code.
// Attempt increments commit even when verification fails, so mismatches
// always cost an attempt.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	now := s.now().UTC()

	var flowErr error
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := reg.Users.FindByEmail(email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				flowErr = domain.ErrUserNotFound
				return nil
			}
			return fmt.Errorf("find user: %w", err)
		}
		if user.IsVerified() {
			flowErr = domain.ErrEmailAlreadyVerified
			return nil
		}

		record, err := reg.Codes.FindLatestUnusedByUserID(user.ID)
		if err != nil {
			if errors.Is(err, repository.ErrVerificationCodeNotFound) {
				s.logger.WarnContext(ctx, "no verification code on file", "user_id", user.ID)
				flowErr = domain.ErrOTPInvalid
				return nil
			}
			return fmt.Errorf("find verification code: %w", err)
		}

		if vErr := record.VerifyAttempt(code, now, s.policy.OTPMaxAttempts); vErr != nil {
			flowErr = vErr
			if errors.Is(vErr, domain.ErrOTPInvalid) {
				// The burned attempt must survive the failed verification.
				return reg.Codes.Update(record)
			}
			return nil
		}

		if uErr := reg.Codes.Update(record); uErr != nil {
			return fmt.Errorf("consume verification code: %w", uErr)
		}
		verifiedAt := now
		user.EmailVerifiedAt = &verifiedAt
		if uErr := reg.Users.Update(user); uErr != nil {
			return fmt.Errorf("mark email verified: %w", uErr)
		}
		s.logger.InfoContext(ctx, "email verified", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return err
	}
	return flowErr
}

// ResendOTP issues a fresh code unless the latest active code is still
// inside the resend cooldown.
func (s *AuthService) ResendOTP(ctx context.Context, email string) (ResendResult, error) {
	now := s.now().UTC()

	var (
		flowErr error
		note    *VerificationCodeNotification
	)
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := reg.Users.FindByEmail(email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				flowErr = domain.ErrUserNotFound
				return nil
			}
			return fmt.Errorf("find user: %w", err)
		}
		if user.IsVerified() {
			flowErr = domain.ErrEmailAlreadyVerified
			return nil
		}

		latest, err := reg.Codes.FindLatestUnusedByUserID(user.ID)
		if err != nil && !errors.Is(err, repository.ErrVerificationCodeNotFound) {
			return fmt.Errorf("find verification code: %w", err)
		}
		if err == nil && !latest.CanResend(now, s.policy.OTPResendCooldown) {
			flowErr = &domain.ResendCooldownError{
				RemainingSeconds: latest.ResendRemaining(now, s.policy.OTPResendCooldown),
			}
			return nil
		}

		code, err := s.issueCode(reg, user.ID, now)
		if err != nil {
			return err
		}
		note = &VerificationCodeNotification{UserID: user.ID, Email: user.Email, Code: code.Code, ExpiresAt: code.ExpiresAt}
		return nil
	})
	if err != nil {
		return ResendResult{}, err
	}
	if flowErr != nil {
		return ResendResult{}, flowErr
	}
	s.deliverCode(ctx, note)
	return ResendResult{CooldownSeconds: int(s.policy.OTPResendCooldown.Seconds())}, nil
}

// Login authenticates and issues an access token. Unknown email and wrong
// password are indistinguishable in both error kind and bcrypt cost; state
// gates (unverified, inactive) apply only after the credential check passes.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.reg.Users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.logger.WarnContext(ctx, "failed login attempt")
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "failed login attempt")
		return "", domain.ErrInvalidCredentials
	}
	if !user.IsVerified() {
		s.logger.WarnContext(ctx, "login with unverified email", "user_id", user.ID)
		return "", domain.ErrEmailNotVerified
	}
	if !user.IsActive {
		s.logger.WarnContext(ctx, "inactive user login attempt", "user_id", user.ID)
		return "", domain.ErrUserInactive
	}

	token, err := s.tokens.Issue(user.ID, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return token, nil
}

// ForgotPassword always reports success to the caller; the token side effect
// happens only when the email is registered. Issuing a new token invalidates
// all prior active tokens in the same transaction.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	now := s.now().UTC()

	var note *PasswordResetNotification
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := reg.Users.FindByEmail(email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				// Do not leak whether the email exists.
				return nil
			}
			return fmt.Errorf("find user: %w", err)
		}

		if err := reg.ResetTokens.InvalidateActiveByUserID(user.ID, now); err != nil {
			return fmt.Errorf("invalidate reset tokens: %w", err)
		}

		raw, err := security.NewResetToken()
		if err != nil {
			return fmt.Errorf("generate reset token: %w", err)
		}
		token := domain.NewPasswordResetToken(user.ID, security.HashToken(raw), now, s.policy.ResetTokenTTL)
		if err := reg.ResetTokens.Create(token); err != nil {
			return fmt.Errorf("create reset token: %w", err)
		}
		note = &PasswordResetNotification{UserID: user.ID, Email: user.Email, Token: raw, ExpiresAt: token.ExpiresAt}
		return nil
	})
	if err != nil {
		return err
	}
	if note != nil {
		if nErr := s.notifier.SendPasswordReset(ctx, *note); nErr != nil {
			s.logger.WarnContext(ctx, "password reset delivery failed", "user_id", note.UserID, "error", nErr)
		}
	}
	return nil
}

// ResetPassword redeems a raw reset token. An expired token is consumed and
// committed before the error surfaces (lazy cleanup); a valid one must not
// re-set the current password.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	now := s.now().UTC()
	tokenHash := security.HashToken(rawToken)

	var flowErr error
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		token, err := reg.ResetTokens.FindActiveByHash(tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrResetTokenNotFound) {
				flowErr = domain.ErrInvalidOrExpiredToken
				return nil
			}
			return fmt.Errorf("find reset token: %w", err)
		}
		if token.IsExpired(now) {
			flowErr = domain.ErrInvalidOrExpiredToken
			return reg.ResetTokens.MarkUsed(token.ID)
		}

		user, err := reg.Users.FindByID(token.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				flowErr = domain.ErrUserNotFound
				return nil
			}
			return fmt.Errorf("find user: %w", err)
		}

		if s.hasher.Verify(newPassword, user.PasswordHash) {
			flowErr = domain.ErrPasswordReuseNotAllowed
			return nil
		}
		if vErr := security.ValidatePasswordStrength(newPassword); vErr != nil {
			flowErr = vErr
			return nil
		}
		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		if err := reg.Users.Update(user); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := reg.ResetTokens.MarkUsed(token.ID); err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return err
	}
	return flowErr
}

// CurrentUser resolves an authenticated subject to its user record.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.reg.Users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueCode(reg *repository.Registry, userID uint, now time.Time) (*domain.VerificationCode, error) {
	code, err := domain.NewVerificationCode(userID, now, s.policy.OTPTTL)
	if err != nil {
		return nil, err
	}
	if err := reg.Codes.Create(code); err != nil {
		return nil, fmt.Errorf("create verification code: %w", err)
	}
	return code, nil
}

func (s *AuthService) deliverCode(ctx context.Context, note *VerificationCodeNotification) {
	if note == nil {
		return
	}
	if err := s.notifier.SendVerificationCode(ctx, *note); err != nil {
		s.logger.WarnContext(ctx, "verification code delivery failed", "user_id", note.UserID, "error", err)
	}
}
