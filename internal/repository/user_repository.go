package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/observability"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Create(user *domain.User) error
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	Update(user *domain.User) error
	EmailOrPendingExists(email string) (bool, error)
	CountActiveByRole(role domain.Role) (int64, error)
	ListActivePaged(page PageRequest) (PageResult[domain.User], error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts the user. The is_active column carries a database default of
// true and zero values are omitted on insert, so a new user is always stored
// active; deactivation happens through Update.
func (r *GormUserRepository) Create(user *domain.User) error {
	if err := r.db.Create(user).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "create", "success")
	return nil
}

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "success")
	return &user, nil
}

// FindByEmail matches the primary email exactly; email comparison is
// case-sensitive throughout.
func (r *GormUserRepository) FindByEmail(email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "find_by_email", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_email", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_email", "success")
	return &user, nil
}

func (r *GormUserRepository) Update(user *domain.User) error {
	res := r.db.Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"email":             user.Email,
		"password_hash":     user.PasswordHash,
		"email_verified_at": user.EmailVerifiedAt,
		"pending_email":     user.PendingEmail,
		"is_active":         user.IsActive,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "user", "update", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "update", "success")
	return nil
}

// EmailOrPendingExists reports whether any user holds the address as either
// primary or pending email. Used to fence email-change collisions.
func (r *GormUserRepository) EmailOrPendingExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.User{}).
		Where("email = ? OR pending_email = ?", email, email).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "email_or_pending_exists", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "email_or_pending_exists", "success")
	return count > 0, nil
}

func (r *GormUserRepository) CountActiveByRole(role domain.Role) (int64, error) {
	var count int64
	err := r.db.Model(&domain.User{}).
		Where("role = ? AND is_active = ?", role, true).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "count_active_by_role", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "count_active_by_role", "success")
	return count, nil
}

func (r *GormUserRepository) ListActivePaged(page PageRequest) (PageResult[domain.User], error) {
	page = normalizePageRequest(page)

	base := r.db.Model(&domain.User{}).Where("is_active = ?", true)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "list_paged", "error")
		return PageResult[domain.User]{}, err
	}

	var users []domain.User
	err := base.Order("id asc").
		Limit(page.PageSize).
		Offset((page.Page - 1) * page.PageSize).
		Find(&users).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "list_paged", "error")
		return PageResult[domain.User]{}, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "list_paged", "success")
	return PageResult[domain.User]{
		Items:      users,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      total,
		TotalPages: calcTotalPages(total, page.PageSize),
	}, nil
}
