package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/observability"
)

var ErrVerificationCodeNotFound = errors.New("verification code not found")

type VerificationCodeRepository interface {
	Create(code *domain.VerificationCode) error
	FindLatestUnusedByUserID(userID uint) (*domain.VerificationCode, error)
	Update(code *domain.VerificationCode) error
}

type GormVerificationCodeRepository struct{ db *gorm.DB }

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &GormVerificationCodeRepository{db: db}
}

func (r *GormVerificationCodeRepository) Create(code *domain.VerificationCode) error {
	if err := r.db.Create(code).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "verification_code", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "verification_code", "create", "success")
	return nil
}

// FindLatestUnusedByUserID selects the single row the lifecycle operates on:
// most recently created, unused, for this user. Expiry is checked at
// verify time, not here.
func (r *GormVerificationCodeRepository) FindLatestUnusedByUserID(userID uint) (*domain.VerificationCode, error) {
	var code domain.VerificationCode
	err := r.db.Where("user_id = ? AND is_used = ?", userID, false).
		Order("created_at desc").
		Order("id desc").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "verification_code", "find_latest_unused", "not_found")
			return nil, ErrVerificationCodeNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "verification_code", "find_latest_unused", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "verification_code", "find_latest_unused", "success")
	return &code, nil
}

// Update persists the outcome of a verify attempt: the attempt increment on
// mismatch, or the used flag on success.
func (r *GormVerificationCodeRepository) Update(code *domain.VerificationCode) error {
	res := r.db.Model(&domain.VerificationCode{}).Where("id = ?", code.ID).Updates(map[string]any{
		"attempts_count": code.AttemptsCount,
		"is_used":        code.IsUsed,
		"last_sent_at":   code.LastSentAt,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "verification_code", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "verification_code", "update", "not_found")
		return ErrVerificationCodeNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "verification_code", "update", "success")
	return nil
}
