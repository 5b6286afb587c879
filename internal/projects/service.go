// Package projects manages projects, their members and client feedback.
package projects

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
	"github.com/hugh/flow/internal/store"
)

var ErrInvalidInput = errors.New("invalid project input")

type Store interface {
	Transaction(ctx context.Context, fn func(tx *store.Store) error) error

	GetOrganization(ctx context.Context, id int64) (*models.Organization, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	GetProjects(ctx context.Context, ids []int64) ([]models.Project, error)
	SaveProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id int64) error
	ProjectMembershipsByProjects(ctx context.Context, projectIDs []int64) ([]models.ProjectMember, error)
	CreateMeeting(ctx context.Context, m *models.Meeting) error

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUsers(ctx context.Context, ids []int64) ([]models.User, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, actor access.Actor, action access.Action, res access.Resource) error
}

type Visibility interface {
	VisibleProjects(ctx context.Context, actor access.Actor) ([]int64, error)
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
	Name             string
	Description      string
	ProjectManagerID *int64
	StartDate        *time.Time
	EndDate          *time.Time
	MemberIDs        []int64
}

type UpdateInput struct {
	Name             *string
	Description      *string
	ProjectManagerID *int64
	StartDate        *time.Time
	EndDate          *time.Time
}

// Create adds a project to orgID. Initial members join as TEAM_MEMBER and
// are notified. A project manager creating a project without naming a
// manager becomes its manager.
func (s *Service) Create(ctx context.Context, actor access.Actor, orgID int64, in CreateInput) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionCreate, access.Project(0)); err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Organization(orgID)); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := checkDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	managerID := in.ProjectManagerID
	if managerID == nil && actor.PrimaryRole() == models.RoleProjectManager {
		managerID = &actor.ID
	}
	if managerID != nil {
		if err := s.requireUser(ctx, *managerID, "project manager"); err != nil {
			return nil, err
		}
	}

	memberIDs := distinct(in.MemberIDs)
	members, err := s.store.GetUsers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(members) != len(memberIDs) {
		return nil, fmt.Errorf("%w: unknown member in %v", ErrInvalidInput, memberIDs)
	}

	limits, err := s.limits.Limits(ctx)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		OrganizationID:   orgID,
		Name:             name,
		Description:      in.Description,
		IsActive:         true,
		CreatedByID:      actor.ID,
		ProjectManagerID: managerID,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		n, err := tx.CountProjectsByOrganization(ctx, orgID)
		if err != nil {
			return err
		}
		if err := settings.Check("projects per organization", n, limits.MaxProjectsPerOrganization); err != nil {
			return err
		}
		if len(memberIDs) > limits.MaxMembersPerProject {
			return fmt.Errorf("%w: members per project (max %d)", settings.ErrLimitExceeded, limits.MaxMembersPerProject)
		}
		if err := tx.CreateProject(ctx, project); err != nil {
			return err
		}
		for _, uid := range memberIDs {
			m := &models.ProjectMember{ProjectID: project.ID, UserID: uid, Role: models.RoleTeamMember}
			if err := tx.SaveProjectMembership(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, u := range members {
		s.notifyAssignment(ctx, actor, project, &u, models.RoleTeamMember)
	}
	s.logger.Info("project created", "project_id", project.ID, "organization_id", orgID, "user_id", actor.ID)
	return project, nil
}

// List returns the actor's visible projects, optionally restricted to one
// organization, ordered by id.
func (s *Service) List(ctx context.Context, actor access.Actor, orgID int64) ([]models.Project, error) {
	ids, err := s.visibility.VisibleProjects(ctx, actor)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.GetProjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if orgID == 0 || p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionRead, access.Project(id)); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, id)
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, in UpdateInput) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionUpdate, access.Project(id)); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		project.Name = name
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if in.ProjectManagerID != nil {
		if err := s.requireUser(ctx, *in.ProjectManagerID, "project manager"); err != nil {
			return nil, err
		}
		project.ProjectManagerID = in.ProjectManagerID
	}
	if in.StartDate != nil {
		project.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		project.EndDate = in.EndDate
	}
	if err := checkDates(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}

	if err := s.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateStatus activates or deactivates the project and tells every member
// and the manager, in-app and by mail.
func (s *Service) UpdateStatus(ctx context.Context, actor access.Actor, id int64, active bool) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionUpdateStatus, access.Project(id)); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	project.IsActive = active
	if err := s.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}

	label := "Inactive"
	if active {
		label = "Active"
	}
	audience, err := s.audience(ctx, project)
	if err != nil {
		s.logger.Warn("load project audience failed", "project_id", id, "error", err)
	}
	for _, u := range audience {
		s.emit(ctx, actor, u.ID, events.Event{
			Type:              models.EventProjectStatusChange,
			Title:             "Project Status Updated",
			Message:           fmt.Sprintf("Project '%s' is now %s", project.Name, label),
			RelatedEntityType: models.EntityProject,
			RelatedEntityID:   project.ID,
		})
		s.send(ctx, mail.ProjectStatusChanged(u.Email, u.FirstName, project.Name, label))
	}
	return project, nil
}

// Delete removes the project with its tasks and memberships, then mails
// everyone who was on it.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionDelete, access.Project(id)); err != nil {
		return err
	}
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return err
	}
	audience, err := s.audience(ctx, project)
	if err != nil {
		s.logger.Warn("load project audience failed", "project_id", id, "error", err)
	}

	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	for _, u := range audience {
		s.send(ctx, mail.ProjectDeleted(u.Email, u.FirstName, project.Name))
	}
	s.logger.Info("project deleted", "project_id", id, "user_id", actor.ID)
	return nil
}

func (s *Service) requireUser(ctx context.Context, id int64, what string) error {
	_, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %d not found", ErrInvalidInput, what, id)
	}
	return err
}

func (s *Service) notifyAssignment(ctx context.Context, actor access.Actor, project *models.Project, u *models.User, role string) {
	s.emit(ctx, actor, u.ID, events.Event{
		Type:              models.EventProjectAssignment,
		Title:             "Added to Project",
		Message:           fmt.Sprintf("You have been added to project '%s' as %s", project.Name, role),
		RelatedEntityType: models.EntityProject,
		RelatedEntityID:   project.ID,
	})
	s.send(ctx, mail.ProjectAssignment(u.Email, u.FirstName, project.Name, role))
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

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	return nil
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
