// Package tasks manages tasks inside projects: creation, assignment,
// status changes and comments.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/status"
	"github.com/hugh/flow/internal/store"
)

var ErrInvalidInput = errors.New("invalid task input")

type Store interface {
	Transaction(ctx context.Context, fn func(tx *store.Store) error) error

	GetProject(ctx context.Context, id int64) (*models.Project, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	GetTasks(ctx context.Context, ids []int64) ([]models.Task, error)
	SaveTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id int64) error
	CreateComment(ctx context.Context, c *models.TaskComment) error
	CommentsByTask(ctx context.Context, taskID int64) ([]models.TaskComment, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, actor access.Actor, action access.Action, res access.Resource) error
}

type Visibility interface {
	VisibleTasks(ctx context.Context, actor access.Actor) ([]int64, error)
}

type LimitSource interface {
	Limits(ctx context.Context) (settings.Limits, error)
}

type Notifier interface {
	Emit(ctx context.Context, actor access.Actor, recipientID int64, ev events.Event) (*models.NotificationEvent, error)
}

type Service struct {
	store      Store
	authorizer Authorizer
	visibility Visibility
	limits     LimitSource
	notifier   Notifier
	mailer     mail.Sender
	logger     *slog.Logger
}

func NewService(s Store, authorizer Authorizer, visibility Visibility, limits LimitSource, notifier Notifier, mailer mail.Sender, logger *slog.Logger) *Service {
	return &Service{
		store:      s,
		authorizer: authorizer,
		visibility: visibility,
		limits:     limits,
		notifier:   notifier,
		mailer:     mailer,
		logger:     logger,
	}
}

type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	AssigneeID  *int64
}

type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
}

// Create adds a task to projectID. Status and priority default to todo and
// medium. An assignee who is not yet on the project is added as
// TEAM_MEMBER.
func (s *Service) Create(ctx context.Context, actor access.Actor, projectID int64, in CreateInput) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionCreate, access.Task(0)); err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Project(projectID)); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	taskStatus, err := normalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var assignee *models.User
	if in.AssigneeID != nil {
		if assignee, err = s.requireUser(ctx, *in.AssigneeID); err != nil {
			return nil, err
		}
	}
	limits, err := s.limits.Limits(ctx)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ProjectID:    projectID,
		Title:        title,
		Description:  in.Description,
		Status:       taskStatus,
		Priority:     priority,
		DueDate:      in.DueDate,
		AssignedToID: in.AssigneeID,
		CreatedByID:  actor.ID,
	}

	var joined bool
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		n, err := tx.CountTasksByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if err := settings.Check("tasks per project", n, limits.MaxTasksPerProject); err != nil {
			return err
		}
		if assignee != nil {
			if joined, err = ensureMember(ctx, tx, project, assignee.ID, limits.MaxMembersPerProject); err != nil {
				return err
			}
		}
		return tx.CreateTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if assignee != nil {
		s.afterAssign(ctx, actor, project, task, assignee, joined)
	}
	s.logger.Info("task created", "task_id", task.ID, "project_id", projectID, "user_id", actor.ID)
	return task, nil
}

// ListByProject returns the project's tasks the actor can see, newest
// first.
func (s *Service) ListByProject(ctx context.Context, actor access.Actor, projectID int64) ([]models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Project(projectID)); err != nil {
		return nil, err
	}
	ids, err := s.visibility.VisibleTasks(ctx, actor)
	if err != nil {
		return nil, err
	}
	all, err := s.store.GetTasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Task, 0, len(all))
	for _, t := range all {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Task(id)); err != nil {
		return nil, err
	}
	return s.store.GetTask(ctx, id)
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, in UpdateInput) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionUpdate, access.Task(id)); err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		if strings.TrimSpace(*in.Priority) == "" {
			return nil, fmt.Errorf("%w: priority must not be empty", ErrInvalidInput)
		}
		p, err := normalizePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = p
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateStatus moves the task to a new status. Moving into done notifies
// the project manager.
func (s *Service) UpdateStatus(ctx context.Context, actor access.Actor, id int64, newStatus string) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionUpdateStatus, access.Task(id)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(newStatus) == "" {
		return nil, fmt.Errorf("%w: status is required", ErrInvalidInput)
	}
	next, err := normalizeStatus(newStatus)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := task.Status
	task.Status = next
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}

	if status.CompletedTransition(previous, next) {
		project, err := s.store.GetProject(ctx, task.ProjectID)
		if err != nil {
			s.logger.Warn("load project for completion notice failed", "task_id", id, "error", err)
			return task, nil
		}
		if project.ProjectManagerID != nil {
			s.emit(ctx, actor, *project.ProjectManagerID, events.Event{
				Type:              models.EventTaskCompleted,
				Title:             "Task Completed",
				Message:           fmt.Sprintf("Task '%s' in project '%s' was completed", task.Title, project.Name),
				RelatedEntityType: models.EntityTask,
				RelatedEntityID:   task.ID,
			})
		}
	}
	return task, nil
}

// Assign sets or clears the task's assignee.
func (s *Service) Assign(ctx context.Context, actor access.Actor, id int64, assigneeID *int64) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionAssign, access.Task(id)); err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if assigneeID == nil {
		task.AssignedToID = nil
		if err := s.store.SaveTask(ctx, task); err != nil {
			return nil, err
		}
		return task, nil
	}

	assignee, err := s.requireUser(ctx, *assigneeID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	limits, err := s.limits.Limits(ctx)
	if err != nil {
		return nil, err
	}

	unchanged := task.AssignedTo(assignee.ID)
	var joined bool
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if joined, err = ensureMember(ctx, tx, project, assignee.ID, limits.MaxMembersPerProject); err != nil {
			return err
		}
		task.AssignedToID = &assignee.ID
		return tx.SaveTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if !unchanged {
		s.afterAssign(ctx, actor, project, task, assignee, joined)
	}
	return task, nil
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionDelete, access.Task(id)); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", id, "user_id", actor.ID)
	return nil
}

// Comment appends a comment and tells the assignee, unless the assignee
// wrote it.
func (s *Service) Comment(ctx context.Context, actor access.Actor, id int64, body string) (*models.TaskComment, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionComment, access.Task(id)); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	comment := &models.TaskComment{TaskID: id, AuthorID: actor.ID, Body: body}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if task.AssignedToID != nil && *task.AssignedToID != actor.ID {
		s.emit(ctx, actor, *task.AssignedToID, events.Event{
			Type:              models.EventTaskComment,
			Title:             "New Comment",
			Message:           fmt.Sprintf("%s commented on '%s'", actor.Email, task.Title),
			RelatedEntityType: models.EntityTask,
			RelatedEntityID:   task.ID,
		})
	}
	return comment, nil
}

func (s *Service) Comments(ctx context.Context, actor access.Actor, id int64) ([]models.TaskComment, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Task(id)); err != nil {
		return nil, err
	}
	return s.store.CommentsByTask(ctx, id)
}

func (s *Service) afterAssign(ctx context.Context, actor access.Actor, project *models.Project, task *models.Task, assignee *models.User, joined bool) {
	if joined {
		s.send(ctx, mail.ProjectAssignment(assignee.Email, assignee.FirstName, project.Name, models.RoleTeamMember))
	}
	if assignee.ID == actor.ID {
		return
	}
	s.emit(ctx, actor, assignee.ID, events.Event{
		Type:              models.EventTaskAssigned,
		Title:             "Task Assigned",
		Message:           fmt.Sprintf("You have been assigned '%s' in project '%s'", task.Title, project.Name),
		RelatedEntityType: models.EntityTask,
		RelatedEntityID:   task.ID,
	})
}

func (s *Service) requireUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d not found", ErrInvalidInput, id)
	}
	return u, err
}

func (s *Service) emit(ctx context.Context, actor access.Actor, recipientID int64, ev events.Event) {
	if _, err := s.notifier.Emit(ctx, actor, recipientID, ev); err != nil {
		s.logger.Warn("notification failed", "event_type", ev.Type, "recipient_id", recipientID, "error", err)
	}
}

func (s *Service) send(ctx context.Context, msg mail.Message) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("mail failed", "to", msg.To, "subject", msg.Subject, "error", err)
	}
}

// ensureMember adds userID to the project as TEAM_MEMBER unless they
// already belong to it or manage it. It reports whether a row was added.
func ensureMember(ctx context.Context, tx *store.Store, project *models.Project, userID int64, maxMembers int) (bool, error) {
	if project.ManagedBy(userID) {
		return false, nil
	}
	_, err := tx.GetProjectMembership(ctx, project.ID, userID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	n, err := tx.CountProjectMembers(ctx, project.ID)
	if err != nil {
		return false, err
	}
	if err := settings.Check("members per project", n, maxMembers); err != nil {
		return false, err
	}
	m := &models.ProjectMember{ProjectID: project.ID, UserID: userID, Role: models.RoleTeamMember}
	return true, tx.SaveProjectMembership(ctx, m)
}

func normalizeStatus(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return status.Todo, nil
	}
	if !status.Known(s) {
		return "", fmt.Errorf("%w: status %q", ErrInvalidInput, s)
	}
	return status.Normalize(s), nil
}

func normalizePriority(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return status.Medium, nil
	}
	if !status.KnownPriority(p) {
		return "", fmt.Errorf("%w: priority %q", ErrInvalidInput, p)
	}
	return status.NormalizePriority(p), nil
}
