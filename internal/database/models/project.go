package models

import "time"

type Project struct {
	Base
	OrganizationID   int64      `gorm:"not null;index" json:"organization_id"`
	Name             string     `gorm:"not null" json:"name"`
	Description      string     `json:"description"`
	IsActive         bool       `gorm:"not null" json:"is_active"`
	CreatedByID      int64      `gorm:"not null;index" json:"created_by_id"`
	ProjectManagerID *int64     `gorm:"index" json:"project_manager_id,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) ManagedBy(userID int64) bool {
	return p.ProjectManagerID != nil && *p.ProjectManagerID == userID
}

type ProjectMember struct {
	Base
	ProjectID int64  `gorm:"not null;uniqueIndex:idx_project_member" json:"project_id"`
	UserID    int64  `gorm:"not null;uniqueIndex:idx_project_member;index" json:"user_id"`
	Role      string `gorm:"not null" json:"role"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}
