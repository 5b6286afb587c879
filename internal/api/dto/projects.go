package dto

import (
	"strings"
	"time"

	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/projects"
)

type CreateProjectRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ProjectManagerID *int64   `json:"project_manager_id,string,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	MemberIDs        []string `json:"member_ids,omitempty"`
}

func (r CreateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	} else if len(r.Name) > validation.MaxNameLength {
		errors["name"] = "Name is too long"
	}
	if _, err := validation.ParseDate(r.StartDate); err != nil {
		errors["start_date"] = "Start date is invalid"
	}
	if _, err := validation.ParseDate(r.EndDate); err != nil {
		errors["end_date"] = "End date is invalid"
	}
	if _, err := validation.ParseIDs(r.MemberIDs); err != nil {
		errors["member_ids"] = "Member ids are invalid"
	}
	return errors
}

// Input converts a validated request.
func (r CreateProjectRequest) Input() projects.CreateInput {
	start, _ := validation.ParseDate(r.StartDate)
	end, _ := validation.ParseDate(r.EndDate)
	members, _ := validation.ParseIDs(r.MemberIDs)
	return projects.CreateInput{
		Name:             r.Name,
		Description:      r.Description,
		ProjectManagerID: r.ProjectManagerID,
		StartDate:        start,
		EndDate:          end,
		MemberIDs:        members,
	}
}

type UpdateProjectRequest struct {
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	ProjectManagerID *int64  `json:"project_manager_id,string,omitempty"`
	StartDate        *string `json:"start_date,omitempty"`
	EndDate          *string `json:"end_date,omitempty"`
}

func (r UpdateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		errors["name"] = "Name must not be empty"
	}
	if r.StartDate != nil {
		if _, err := validation.ParseDate(*r.StartDate); err != nil {
			errors["start_date"] = "Start date is invalid"
		}
	}
	if r.EndDate != nil {
		if _, err := validation.ParseDate(*r.EndDate); err != nil {
			errors["end_date"] = "End date is invalid"
		}
	}
	return errors
}

func (r UpdateProjectRequest) Input() projects.UpdateInput {
	in := projects.UpdateInput{
		Name:             r.Name,
		Description:      r.Description,
		ProjectManagerID: r.ProjectManagerID,
	}
	if r.StartDate != nil {
		in.StartDate, _ = validation.ParseDate(*r.StartDate)
	}
	if r.EndDate != nil {
		in.EndDate, _ = validation.ParseDate(*r.EndDate)
	}
	return in
}

type ProjectStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (r ProjectStatusRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.IsActive == nil {
		errors["is_active"] = "is_active is required"
	}
	return errors
}

type ProjectMemberRequest struct {
	UserID int64  `json:"user_id,string"`
	Role   string `json:"role"`
}

func (r ProjectMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.UserID == 0 {
		errors["user_id"] = "User is required"
	}
	return errors
}

type FeedbackRequest struct {
	Message string `json:"message"`
}

func (r FeedbackRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Message) == "" {
		errors["message"] = "Message is required"
	} else if len(r.Message) > validation.MaxTextLength {
		errors["message"] = "Message is too long"
	}
	return errors
}

type ProjectResponse struct {
	ID               string     `json:"id"`
	OrganizationID   string     `json:"organization_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	IsActive         bool       `json:"is_active"`
	CreatedByID      string     `json:"created_by_id"`
	ProjectManagerID *string    `json:"project_manager_id,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func NewProjectResponse(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:               FormatID(p.ID),
		OrganizationID:   FormatID(p.OrganizationID),
		Name:             p.Name,
		Description:      p.Description,
		IsActive:         p.IsActive,
		CreatedByID:      FormatID(p.CreatedByID),
		ProjectManagerID: formatOptionalID(p.ProjectManagerID),
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func NewProjectResponses(ps []models.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(ps))
	for i := range ps {
		out[i] = NewProjectResponse(&ps[i])
	}
	return out
}

type MeetingRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (r MeetingRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	} else if len(r.Title) > validation.MaxNameLength {
		errors["title"] = "Title is too long"
	}
	if len(r.Description) > validation.MaxTextLength {
		errors["description"] = "Description is too long"
	}
	if r.ScheduledAt.IsZero() {
		errors["scheduled_at"] = "Scheduled time is required"
	}
	return errors
}

type MeetingResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	RequesterID string    `json:"requester_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewMeetingResponse(m *models.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:          FormatID(m.ID),
		ProjectID:   FormatID(m.ProjectID),
		RequesterID: FormatID(m.RequesterID),
		Title:       m.Title,
		Description: m.Description,
		ScheduledAt: m.ScheduledAt,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
}
