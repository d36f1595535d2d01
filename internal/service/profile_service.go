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

// ProfileService handles credential mutations for an already-authenticated
// identity: password change, email change (request + confirm), deactivation,
// and the admin user listing.
type ProfileService struct {
	reg      *repository.Registry
	tx       repository.Transactor
	hasher   *security.PasswordHasher
	notifier Notifier
	policy   CredentialPolicy
	logger   *slog.Logger
	now      func() time.Time
}

func NewProfileService(
	reg *repository.Registry,
	tx repository.Transactor,
	hasher *security.PasswordHasher,
	notifier Notifier,
	policy CredentialPolicy,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		reg:      reg,
		tx:       tx,
		hasher:   hasher,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// ChangePassword requires the current password and rejects a no-op change.
func (s *ProfileService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	var (
		flowErr error
		email   string
	)
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := s.loadUser(reg, userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				flowErr = err
				return nil
			}
			return err
		}
		if !s.hasher.Verify(currentPassword, user.PasswordHash) {
			flowErr = domain.ErrInvalidCredentials
			return nil
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
		email = user.Email
		s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return err
	}
	if flowErr != nil {
		return flowErr
	}
	if nErr := s.notifier.SendPasswordChanged(ctx, userID, email); nErr != nil {
		s.logger.WarnContext(ctx, "password changed delivery failed", "user_id", userID, "error", nErr)
	}
	return nil
}

// RequestEmailChange stakes a pending email and issues a verification code
// scoped to the same user. The target address must not collide with any
// user's primary or pending email (exact match).
func (s *ProfileService) RequestEmailChange(ctx context.Context, userID uint, newEmail, currentPassword string) error {
	now := s.now().UTC()

	var (
		flowErr error
		note    *VerificationCodeNotification
	)
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := s.loadUser(reg, userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				flowErr = err
				return nil
			}
			return err
		}
		if !s.hasher.Verify(currentPassword, user.PasswordHash) {
			flowErr = domain.ErrInvalidCredentials
			return nil
		}
		if newEmail == user.Email {
			flowErr = domain.ErrEmailTaken
			return nil
		}
		taken, err := reg.Users.EmailOrPendingExists(newEmail)
		if err != nil {
			return fmt.Errorf("check email collision: %w", err)
		}
		if taken {
			flowErr = domain.ErrEmailTaken
			return nil
		}

		pending := newEmail
		user.PendingEmail = &pending
		if err := reg.Users.Update(user); err != nil {
			return fmt.Errorf("stake pending email: %w", err)
		}

		code, err := domain.NewVerificationCode(user.ID, now, s.policy.OTPTTL)
		if err != nil {
			return err
		}
		if err := reg.Codes.Create(code); err != nil {
			return fmt.Errorf("create verification code: %w", err)
		}
		// The code proves control of the NEW address.
		note = &VerificationCodeNotification{UserID: user.ID, Email: newEmail, Code: code.Code, ExpiresAt: code.ExpiresAt}
		return nil
	})
	if err != nil {
		return err
	}
	if flowErr != nil {
		return flowErr
	}
	if nErr := s.notifier.SendVerificationCode(ctx, *note); nErr != nil {
		s.logger.WarnContext(ctx, "verification code delivery failed", "user_id", note.UserID, "error", nErr)
	}
	return nil
}

// ConfirmEmailChange verifies the OTP and atomically promotes the pending
// email to primary.
func (s *ProfileService) ConfirmEmailChange(ctx context.Context, userID uint, code string) error {
	now := s.now().UTC()

	var flowErr error
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := s.loadUser(reg, userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				flowErr = err
				return nil
			}
			return err
		}
		if user.PendingEmail == nil {
			flowErr = domain.ErrNoPendingEmailChange
			return nil
		}

		record, err := reg.Codes.FindLatestUnusedByUserID(user.ID)
		if err != nil {
			if errors.Is(err, repository.ErrVerificationCodeNotFound) {
				flowErr = domain.ErrOTPInvalid
				return nil
			}
			return fmt.Errorf("find verification code: %w", err)
		}

		if vErr := record.VerifyAttempt(code, now, s.policy.OTPMaxAttempts); vErr != nil {
			flowErr = vErr
			if errors.Is(vErr, domain.ErrOTPInvalid) {
				return reg.Codes.Update(record)
			}
			return nil
		}

		if uErr := reg.Codes.Update(record); uErr != nil {
			return fmt.Errorf("consume verification code: %w", uErr)
		}
		verifiedAt := now
		user.Email = *user.PendingEmail
		user.PendingEmail = nil
		user.EmailVerifiedAt = &verifiedAt
		if uErr := reg.Users.Update(user); uErr != nil {
			return fmt.Errorf("promote pending email: %w", uErr)
		}
		s.logger.InfoContext(ctx, "email changed", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return err
	}
	return flowErr
}

// DeactivateAccount soft-deletes the caller's account. The last active
// super admin can never be deactivated.
func (s *ProfileService) DeactivateAccount(ctx context.Context, userID uint, currentPassword string) error {
	var flowErr error
	err := s.tx.InTx(ctx, func(reg *repository.Registry) error {
		user, err := s.loadUser(reg, userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				flowErr = err
				return nil
			}
			return err
		}
		if !s.hasher.Verify(currentPassword, user.PasswordHash) {
			flowErr = domain.ErrInvalidCredentials
			return nil
		}
		if user.Role == domain.RoleSuperAdmin {
			count, err := reg.Users.CountActiveByRole(domain.RoleSuperAdmin)
			if err != nil {
				return fmt.Errorf("count active super admins: %w", err)
			}
			if count <= 1 {
				flowErr = domain.ErrLastSuperAdminProtected
				return nil
			}
		}
		user.IsActive = false
		if err := reg.Users.Update(user); err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		s.logger.InfoContext(ctx, "account deactivated", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return err
	}
	return flowErr
}

// ListUsers returns a page of active users; admin and above only.
func (s *ProfileService) ListUsers(ctx context.Context, actorRole domain.Role, page repository.PageRequest) (repository.PageResult[domain.User], error) {
	if !actorRole.AtLeast(domain.RoleAdmin) {
		return repository.PageResult[domain.User]{}, domain.ErrInsufficientPermissions
	}
	result, err := s.reg.Users.ListActivePaged(page)
	if err != nil {
		return repository.PageResult[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return result, nil
}

func (s *ProfileService) loadUser(reg *repository.Registry, userID uint) (*domain.User, error) {
	user, err := reg.Users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
