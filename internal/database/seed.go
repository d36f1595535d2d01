package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hryurt/dezztech-backend/internal/domain"

	"gorm.io/gorm"
)

// SeedSuperAdmin ensures a bootstrap super admin exists so the deactivation
// guard always has an account to protect. Idempotent: an existing user with
// the email is promoted if needed, never demoted, and the password is only
// set on first creation.
func SeedSuperAdmin(db *gorm.DB, email, passwordHash string) (created bool, err error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, errors.New("seed: email required")
	}
	if passwordHash == "" {
		return false, errors.New("seed: password hash required")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var user domain.User
		findErr := tx.Where("email = ?", email).First(&user).Error
		if findErr == nil {
			if user.Role == domain.RoleSuperAdmin && user.IsActive {
				return nil
			}
			updates := map[string]interface{}{"role": domain.RoleSuperAdmin, "is_active": true}
			return tx.Model(&domain.User{}).Where("id = ?", user.ID).Updates(updates).Error
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed: find user: %w", findErr)
		}

		now := time.Now().UTC()
		user = domain.User{
			Email:           email,
			PasswordHash:    passwordHash,
			Name:            "Administrator",
			Role:            domain.RoleSuperAdmin,
			EmailVerifiedAt: &now,
			IsActive:        true,
		}
		if createErr := tx.Create(&user).Error; createErr != nil {
			return fmt.Errorf("seed: create user: %w", createErr)
		}
		created = true
		return nil
	})
	return created, err
}
