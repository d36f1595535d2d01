package domain

import "time"

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// AtLeast reports whether r grants everything other does. Roles are a
// strict ladder: user < admin < super_admin.
func (r Role) AtLeast(other Role) bool {
	return roleRank(r) >= roleRank(other)
}

func roleRank(r Role) int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Email           string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash    string     `gorm:"size:1024;not null" json:"-"`
	Name            string     `gorm:"size:255" json:"name"`
	Role            Role       `gorm:"size:32;not null;default:user" json:"role"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	PendingEmail    *string    `gorm:"size:255" json:"pending_email,omitempty"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}
