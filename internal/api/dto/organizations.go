package dto

import (
	"strings"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/orgs"
)

type CreateOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OrgAdminID  *int64 `json:"org_admin_id,string,omitempty"`
}

func (r CreateOrganizationRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	} else if len(r.Name) > validation.MaxNameLength {
		errors["name"] = "Name is too long"
	}
	return errors
}

type UpdateOrganizationRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	OrgAdminID  *int64  `json:"org_admin_id,string,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (r UpdateOrganizationRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		errors["name"] = "Name must not be empty"
	}
	return errors
}

type OrganizationResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	IsActive     bool      `json:"is_active"`
	OrgAdminID   *string   `json:"org_admin_id,omitempty"`
	CreatedByID  string    `json:"created_by_id"`
	ProjectCount int64     `json:"project_count"`
	MemberCount  int64     `json:"member_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewOrganizationResponse(s *orgs.Summary) OrganizationResponse {
	return OrganizationResponse{
		ID:           FormatID(s.ID),
		Name:         s.Name,
		Slug:         s.Slug,
		Description:  s.Description,
		IsActive:     s.IsActive,
		OrgAdminID:   formatOptionalID(s.OrgAdminID),
		CreatedByID:  FormatID(s.CreatedByID),
		ProjectCount: s.ProjectCount,
		MemberCount:  s.MemberCount,
		CreatedAt:    s.CreatedAt,
	}
}

type AddMemberRequest struct {
	UserID int64  `json:"user_id,string"`
	Role   string `json:"role"`
}

func (r AddMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.UserID == 0 {
		errors["user_id"] = "User is required"
	}
	if r.Role == "" {
		errors["role"] = "Role is required"
	} else if !access.IsKnownRole(r.Role) {
		errors["role"] = "Unknown role"
	}
	return errors
}

type CreateMemberRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (r CreateMemberRequest) Validate() map[string]string {
	errors := RegisterRequest{Email: r.Email, Password: r.Password, FirstName: r.FirstName}.Validate()
	if r.Role == "" {
		errors["role"] = "Role is required"
	} else if !access.IsKnownRole(r.Role) || r.Role == models.RoleSuperAdmin {
		errors["role"] = "Unknown role"
	}
	return errors
}

// MembershipResponse describes one organization or project membership row.
type MembershipResponse struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
}

func NewOrgMembershipResponse(m *models.OrganizationMember) MembershipResponse {
	return MembershipResponse{
		ID:       FormatID(m.ID),
		ParentID: FormatID(m.OrganizationID),
		UserID:   FormatID(m.UserID),
		Role:     m.Role,
	}
}

func NewProjectMembershipResponse(m *models.ProjectMember) MembershipResponse {
	return MembershipResponse{
		ID:       FormatID(m.ID),
		ParentID: FormatID(m.ProjectID),
		UserID:   FormatID(m.UserID),
		Role:     m.Role,
	}
}
