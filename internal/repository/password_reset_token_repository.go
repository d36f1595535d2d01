package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/observability"
)

var ErrResetTokenNotFound = errors.New("password reset token not found")

type PasswordResetTokenRepository interface {
	Create(token *domain.PasswordResetToken) error
	FindActiveByHash(hash string) (*domain.PasswordResetToken, error)
	MarkUsed(id uint) error
	InvalidateActiveByUserID(userID uint, now time.Time) error
}

type GormPasswordResetTokenRepository struct{ db *gorm.DB }

func NewPasswordResetTokenRepository(db *gorm.DB) PasswordResetTokenRepository {
	return &GormPasswordResetTokenRepository{db: db}
}

func (r *GormPasswordResetTokenRepository) Create(token *domain.PasswordResetToken) error {
	if err := r.db.Create(token).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "create", "success")
	return nil
}

func (r *GormPasswordResetTokenRepository) FindActiveByHash(hash string) (*domain.PasswordResetToken, error) {
	var token domain.PasswordResetToken
	err := r.db.Where("token_hash = ? AND is_used = ?", hash, false).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "find_active_by_hash", "not_found")
			return nil, ErrResetTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "find_active_by_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "find_active_by_hash", "success")
	return &token, nil
}

// MarkUsed is idempotence-guarded: a second call for the same token reports
// not found, so concurrent redeems resolve to a single winner.
func (r *GormPasswordResetTokenRepository) MarkUsed(id uint) error {
	res := r.db.Model(&domain.PasswordResetToken{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "mark_used", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "mark_used", "not_found")
		return ErrResetTokenNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "mark_used", "success")
	return nil
}

// InvalidateActiveByUserID marks every active token for the user as used,
// enforcing "only the newest reset link works" when called before Create in
// the issuing transaction.
func (r *GormPasswordResetTokenRepository) InvalidateActiveByUserID(userID uint, now time.Time) error {
	err := r.db.Model(&domain.PasswordResetToken{}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Updates(map[string]any{"is_used": true, "updated_at": now}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "invalidate_active", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "password_reset_token", "invalidate_active", "success")
	return nil
}
