package models

import "time"

// Meeting statuses.
const (
	MeetingPending = "PENDING"
)

// Meeting is a request for a meeting on a project, addressed to its
// project manager.
type Meeting struct {
	Base
	ProjectID   int64     `gorm:"not null;index" json:"project_id"`
	RequesterID int64     `gorm:"not null;index" json:"requester_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	ScheduledAt time.Time `gorm:"not null" json:"scheduled_at"`
	Status      string    `gorm:"not null" json:"status"`
}

func (Meeting) TableName() string {
	return "meetings"
}
