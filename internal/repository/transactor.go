package repository

import (
	"context"

	"gorm.io/gorm"
)

// Registry bundles the per-entity repositories bound to one datastore handle,
// either the root connection or a transaction.
type Registry struct {
	Users       UserRepository
	Codes       VerificationCodeRepository
	ResetTokens PasswordResetTokenRepository
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		Users:       NewUserRepository(db),
		Codes:       NewVerificationCodeRepository(db),
		ResetTokens: NewPasswordResetTokenRepository(db),
	}
}

// Transactor runs a function against a transaction-bound Registry. All writes
// inside fn commit atomically or not at all. Serialization of concurrent
// operations on the same user is provided by the datastore's row-level
// locking, not re-implemented here.
type Transactor interface {
	InTx(ctx context.Context, fn func(reg *Registry) error) error
}

type GormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) InTx(ctx context.Context, fn func(reg *Registry) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRegistry(tx))
	})
}
