package dto

import (
	"strings"
	"time"

	"github.com/hugh/flow/internal/api/validation"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/status"
	"github.com/hugh/flow/internal/tasks"
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date,omitempty"`
	AssigneeID  *int64 `json:"assignee_id,string,omitempty"`
}

func (r CreateTaskRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	} else if len(r.Title) > validation.MaxNameLength {
		errors["title"] = "Title is too long"
	}
	if r.Status != "" && !status.Known(r.Status) {
		errors["status"] = "Unknown status"
	}
	if r.Priority != "" && !status.KnownPriority(r.Priority) {
		errors["priority"] = "Unknown priority"
	}
	if _, err := validation.ParseDate(r.DueDate); err != nil {
		errors["due_date"] = "Due date is invalid"
	}
	return errors
}

func (r CreateTaskRequest) Input() tasks.CreateInput {
	due, _ := validation.ParseDate(r.DueDate)
	return tasks.CreateInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     due,
		AssigneeID:  r.AssigneeID,
	}
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (r UpdateTaskRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		errors["title"] = "Title must not be empty"
	}
	if r.Priority != nil && !status.KnownPriority(*r.Priority) {
		errors["priority"] = "Unknown priority"
	}
	if r.DueDate != nil {
		if _, err := validation.ParseDate(*r.DueDate); err != nil {
			errors["due_date"] = "Due date is invalid"
		}
	}
	return errors
}

func (r UpdateTaskRequest) Input() tasks.UpdateInput {
	in := tasks.UpdateInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
	}
	if r.DueDate != nil {
		in.DueDate, _ = validation.ParseDate(*r.DueDate)
	}
	return in
}

type TaskStatusRequest struct {
	Status string `json:"status"`
}

func (r TaskStatusRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Status == "" {
		errors["status"] = "Status is required"
	} else if !status.Known(r.Status) {
		errors["status"] = "Unknown status"
	}
	return errors
}

// AssignRequest with a null assignee_id unassigns the task.
type AssignRequest struct {
	AssigneeID *int64 `json:"assignee_id,string"`
}

type CommentRequest struct {
	Body string `json:"body"`
}

func (r CommentRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Body) == "" {
		errors["body"] = "Comment is required"
	} else if len(r.Body) > validation.MaxTextLength {
		errors["body"] = "Comment is too long"
	}
	return errors
}

type TaskResponse struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	AssignedToID *string    `json:"assigned_to_id,omitempty"`
	CreatedByID  string     `json:"created_by_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NewTaskResponse(t *models.Task) TaskResponse {
	return TaskResponse{
		ID:           FormatID(t.ID),
		ProjectID:    FormatID(t.ProjectID),
		Title:        t.Title,
		Description:  t.Description,
		Status:       status.Normalize(t.Status),
		Priority:     status.NormalizePriority(t.Priority),
		DueDate:      t.DueDate,
		AssignedToID: formatOptionalID(t.AssignedToID),
		CreatedByID:  FormatID(t.CreatedByID),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func NewTaskResponses(ts []models.Task) []TaskResponse {
	out := make([]TaskResponse, len(ts))
	for i := range ts {
		out[i] = NewTaskResponse(&ts[i])
	}
	return out
}

type CommentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func NewCommentResponse(c *models.TaskComment) CommentResponse {
	return CommentResponse{
		ID:        FormatID(c.ID),
		TaskID:    FormatID(c.TaskID),
		AuthorID:  FormatID(c.AuthorID),
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}
