package domain

import "time"

// PasswordResetToken stores only the sha256 of the raw token; the raw value
// is shown to the user once and never persisted. At most one usable token
// exists per user: issuing a new one marks all prior active tokens used in
// the same transaction.
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	TokenHash string    `gorm:"size:128;index;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	IsUsed    bool      `gorm:"not null;default:false" json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPasswordResetToken(userID uint, tokenHash string, now time.Time, ttl time.Duration) *PasswordResetToken {
	return &PasswordResetToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
	}
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
