package models

import "time"

type Task struct {
	Base
	ProjectID    int64      `gorm:"not null;index" json:"project_id"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `json:"description"`
	Status       string     `gorm:"not null;default:'todo'" json:"status"`
	Priority     string     `gorm:"not null;default:'medium'" json:"priority"`
	DueDate      *time.Time `gorm:"index" json:"due_date,omitempty"`
	AssignedToID *int64     `gorm:"index" json:"assigned_to_id,omitempty"`
	CreatedByID  int64      `gorm:"not null;index" json:"created_by_id"`
}

func (Task) TableName() string {
	return "tasks"
}

// LastTouched is the update time, or the creation time for rows that were
// never updated.
func (t *Task) LastTouched() time.Time {
	if t.UpdatedAt.IsZero() {
		return t.CreatedAt
	}
	return t.UpdatedAt
}

func (t *Task) AssignedTo(userID int64) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

type TaskComment struct {
	Base
	TaskID   int64  `gorm:"not null;index" json:"task_id"`
	AuthorID int64  `gorm:"not null" json:"author_id"`
	Body     string `gorm:"not null" json:"body"`
}

func (TaskComment) TableName() string {
	return "task_comments"
}
