package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const OTPCodeLength = 4

// VerificationCode is a single-use numeric OTP bound to a user. Superseded
// rows are never deleted; lookups always select the most recently created
// unused code, so older rows are inert by construction.
type VerificationCode struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Code          string    `gorm:"size:8;not null" json:"-"`
	ExpiresAt     time.Time `gorm:"not null" json:"expires_at"`
	IsUsed        bool      `gorm:"not null;default:false" json:"is_used"`
	AttemptsCount int       `gorm:"not null;default:0" json:"attempts_count"`
	LastSentAt    time.Time `gorm:"not null" json:"last_sent_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewVerificationCode issues a fresh code for the user. It does not touch
// prior codes; superseding happens through latest-unused selection.
func NewVerificationCode(userID uint, now time.Time, ttl time.Duration) (*VerificationCode, error) {
	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}
	return &VerificationCode{
		UserID:     userID,
		Code:       code,
		ExpiresAt:  now.Add(ttl),
		LastSentAt: now,
	}, nil
}

func (c *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *VerificationCode) HasExceededAttempts(maxAttempts int) bool {
	return c.AttemptsCount >= maxAttempts
}

func (c *VerificationCode) CanResend(now time.Time, cooldown time.Duration) bool {
	return now.Sub(c.LastSentAt) >= cooldown
}

// ResendRemaining returns the whole seconds left in the resend cooldown,
// floored at zero.
func (c *VerificationCode) ResendRemaining(now time.Time, cooldown time.Duration) int {
	remaining := int((cooldown - now.Sub(c.LastSentAt)).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// VerifyAttempt runs the OTP state machine on the in-memory snapshot.
// Check order is load-bearing: exhaustion first (terminal even past expiry),
// then expiry (does not consume an attempt), then mismatch (the only path
// that consumes an attempt), then success (marks the code used).
// The caller persists the snapshot afterwards, including on mismatch, so the
// attempt increment survives.
func (c *VerificationCode) VerifyAttempt(input string, now time.Time, maxAttempts int) error {
	if c.HasExceededAttempts(maxAttempts) {
		return ErrOTPAttemptsExceeded
	}
	if c.IsExpired(now) {
		return ErrOTPExpired
	}
	if c.Code != input {
		c.AttemptsCount++
		return ErrOTPInvalid
	}
	c.IsUsed = true
	return nil
}

func generateOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < OTPCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPCodeLength, n), nil
}
