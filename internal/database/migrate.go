package database

import (
	"github.com/Hryurt/dezztech-backend/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.VerificationCode{},
		&domain.PasswordResetToken{},
	)
}
