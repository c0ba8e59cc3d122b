package models

import (
	"time"

	"fileshare/internal/permissions"
)

type User struct {
	ID               int64            `json:"id" db:"id"`
	Email            string           `json:"email" db:"email"`
	Name             string           `json:"name" db:"name"`
	PasswordHash     string           `json:"-" db:"password_hash"`
	Role             permissions.Role `json:"role" db:"role"`
	IsVerified       bool             `json:"is_verified" db:"is_verified"`
	IsActive         bool             `json:"is_active" db:"is_active"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
	LastLoginAt      *time.Time       `json:"last_login_at,omitempty" db:"last_login_at"`
	EmailConfirmedAt *time.Time       `json:"email_confirmed_at,omitempty" db:"email_confirmed_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == permissions.RoleAdmin
}
