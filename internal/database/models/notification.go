package models

// Event types carried by notifications and webhooks.
const (
	EventTaskAssigned        = "TASK_ASSIGNED"
	EventTaskCompleted       = "TASK_COMPLETED"
	EventTaskComment         = "TASK_COMMENT"
	EventDeadlineApproaching = "DEADLINE_APPROACHING"
	EventProjectStatusChange = "PROJECT_STATUS_CHANGE"
	EventProjectAssignment   = "PROJECT_ASSIGNMENT"
	EventClientFeedback      = "CLIENT_FEEDBACK"
	EventMeetingRequest      = "MEETING_REQUEST"
)

// EventTypes lists every event type in a stable order.
var EventTypes = []string{
	EventTaskAssigned,
	EventTaskCompleted,
	EventTaskComment,
	EventDeadlineApproaching,
	EventProjectStatusChange,
	EventProjectAssignment,
	EventClientFeedback,
	EventMeetingRequest,
}

// Related entity kinds.
const (
	EntityTask         = "TASK"
	EntityProject      = "PROJECT"
	EntityOrganization = "ORGANIZATION"
	EntityMeeting      = "MEETING"
)

// NotificationEvent is append-only; only IsRead ever changes.
type NotificationEvent struct {
	Base
	UserID            int64  `gorm:"not null;index" json:"user_id"`
	Type              string `gorm:"not null" json:"type"`
	Title             string `gorm:"not null" json:"title"`
	Message           string `json:"message"`
	RelatedEntityType string `json:"related_entity_type,omitempty"`
	RelatedEntityID   int64  `json:"related_entity_id,omitempty"`
	IsRead            bool   `gorm:"not null;default:false;index" json:"is_read"`
}

func (NotificationEvent) TableName() string {
	return "notification_events"
}

type WebhookConfig struct {
	Base
	OrganizationID int64      `gorm:"not null;index" json:"organization_id"`
	URL            string     `gorm:"not null" json:"url"`
	SecretKey      string     `json:"-"` // age-sealed
	IsActive       bool       `gorm:"not null;index" json:"is_active"`
	EventTypes     StringList `gorm:"type:text;not null;default:'[]'" json:"event_types"`
	TargetRoles    StringList `gorm:"type:text;not null;default:'[]'" json:"target_roles"`
}

func (WebhookConfig) TableName() string {
	return "webhook_configs"
}

type SystemConfig struct {
	Key       string `gorm:"primaryKey" json:"key"`
	Value     string `gorm:"not null" json:"value"`
	UpdatedAt int64  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemConfig) TableName() string {
	return "system_configs"
}
