package models

import (
	"time"
)

// Role is the flat authorization tier of an account.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleUser       Role = "USER"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// IsStaff reports whether accounts of this role get the elevated staff flag.
func (r Role) IsStaff() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(255);index;not null" json:"email"`
	FirstName    string    `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string    `gorm:"type:varchar(150)" json:"last_name"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'USER';index" json:"role"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	ManagerID    *uint64   `gorm:"index" json:"manager_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Manager *User `gorm:"foreignKey:ManagerID;constraint:OnDelete:SET NULL" json:"-"`
}

func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }
func (u *User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u *User) IsUser() bool       { return u.Role == RoleUser }
