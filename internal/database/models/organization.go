package models

// MembershipDeleted marks a removed membership. The row is kept so foreign
// keys and history stay intact.
const MembershipDeleted = "DELETED"

type Organization struct {
	Base
	Name        string `gorm:"not null;index" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
	OrgAdminID  *int64 `gorm:"index" json:"org_admin_id,omitempty"`
	CreatedByID int64  `gorm:"not null;index" json:"created_by_id"`
}

func (Organization) TableName() string {
	return "organizations"
}

type OrganizationMember struct {
	Base
	OrganizationID int64  `gorm:"not null;uniqueIndex:idx_org_member" json:"organization_id"`
	UserID         int64  `gorm:"not null;uniqueIndex:idx_org_member;index" json:"user_id"`
	Role           string `gorm:"not null" json:"role"`
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}

func (m *OrganizationMember) IsDeleted() bool {
	return m.Role == MembershipDeleted
}
