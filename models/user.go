package models

import (
	"time"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles. Role values arrive
// from form input, so they are checked before use.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is an account in the parking division. Accounts are deactivated
// rather than deleted so audit records keep a valid actor reference.
type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Username           string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	FullName           string    `gorm:"not null;size:200" json:"full_name"`
	PasswordHash       string    `gorm:"not null" json:"-"`
	Role               Role      `gorm:"not null;size:20" json:"role"`
	ManagerID          *uint     `gorm:"index" json:"manager_id"`
	Manager            *User     `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	Active             bool      `gorm:"not null;default:true" json:"active"`
	MustChangePassword bool      `gorm:"default:true" json:"must_change_password"`

	TimeEntries []TimeEntry `gorm:"foreignKey:UserID" json:"time_entries,omitempty"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// Manages reports whether other reports to u. Admins manage everyone.
func (u *User) Manages(other *User) bool {
	if u.IsAdmin() {
		return true
	}
	return u.IsManager() && other.ManagerID != nil && *other.ManagerID == u.ID
}
