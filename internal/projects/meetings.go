package projects

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
)

type MeetingInput struct {
	Title       string
	Description string
	ScheduledAt time.Time
}

// RequestMeeting records a pending meeting on the project and sends the
// details to its manager as a MEETING_REQUEST. The meeting is stored even
// when the project has no manager.
func (s *Service) RequestMeeting(ctx context.Context, actor access.Actor, projectID int64, in MeetingInput) (*models.Meeting, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionMeeting, access.Project(projectID)); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: meeting title is required", ErrInvalidInput)
	}
	if in.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: meeting time is required", ErrInvalidInput)
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	requester, err := s.store.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	meeting := &models.Meeting{
		ProjectID:   project.ID,
		RequesterID: requester.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		ScheduledAt: in.ScheduledAt,
		Status:      models.MeetingPending,
	}
	if err := s.store.CreateMeeting(ctx, meeting); err != nil {
		return nil, err
	}

	if project.ProjectManagerID == nil {
		s.logger.Info("meeting requested on unmanaged project", "project_id", project.ID, "meeting_id", meeting.ID)
		return meeting, nil
	}

	if _, err := s.notifier.Emit(ctx, actor, *project.ProjectManagerID, events.Event{
		Type:              models.EventMeetingRequest,
		Title:             "Meeting Request: " + title,
		Message:           meetingMessage(requester, project, meeting),
		RelatedEntityType: models.EntityMeeting,
		RelatedEntityID:   meeting.ID,
	}); err != nil {
		return nil, err
	}
	return meeting, nil
}

func meetingMessage(requester *models.User, project *models.Project, m *models.Meeting) string {
	description := m.Description
	if description == "" {
		description = "No description provided"
	}
	name := requester.FullName()
	if name == "" {
		name = requester.Email
	}
	return fmt.Sprintf("Meeting Request from: %s\n\nTitle: %s\nProject: %s\nScheduled: %s\n\nDescription:\n%s",
		name, m.Title, project.Name, m.ScheduledAt.Format(time.RFC3339), description)
}
