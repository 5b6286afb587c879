package models

import "strings"

// Global role names.
const (
	RoleSuperAdmin     = "SUPER_ADMIN"
	RoleOrgAdmin       = "ORG_ADMIN"
	RoleProjectManager = "PROJECT_MANAGER"
	RoleTeamMember     = "TEAM_MEMBER"
	RoleClient         = "CLIENT"
)

type User struct {
	Base
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Roles        StringList `gorm:"type:text;not null;default:'[]'" json:"roles"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) HasRole(role string) bool {
	return u.Roles.Contains(role)
}
