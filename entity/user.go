package entity

import (
	"strings"
	"time"
)

const (
	AdminRole   = "admin"
	RopRole     = "rop"
	ManagerRole = "manager"
)

type UserProfile struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             string    `json:"role"`
	OrganizationName string    `json:"organization_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// Manager is an agent account administered by an admin or a head of sales (rop).
type Manager struct {
	UserProfile
	IsActive bool `json:"is_active"`
}

func (u *UserProfile) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *UserProfile) IsAdmin() bool {
	return u.Role == AdminRole
}

// CanManageUsers reports whether the user may create or edit managers.
func (u *UserProfile) CanManageUsers() bool {
	return u.Role == AdminRole || u.Role == RopRole
}

// ProfileUpdate holds the editable profile fields; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName        *string `json:"first_name,omitempty"`
	LastName         *string `json:"last_name,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	OrganizationName *string `json:"organization_name,omitempty"`
}

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role" validate:"required,oneof=admin rop manager"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=admin rop manager"`
	IsActive  *bool   `json:"is_active,omitempty"`
}
