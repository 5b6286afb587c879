package projects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/store"
)

// Member is a user on a project. The manager is listed with role
// PROJECT_MANAGER even without a membership row.
type Member struct {
	UserID    int64  `json:"id,string"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (s *Service) Members(ctx context.Context, actor access.Actor, projectID int64) ([]Member, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionReadMembers, access.Project(projectID)); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.store.ProjectMembershipsByProjects(ctx, []int64{projectID})
	if err != nil {
		return nil, err
	}
	roles := make(map[int64]string, len(memberships)+1)
	ids := make([]int64, 0, len(memberships)+1)
	for _, m := range memberships {
		roles[m.UserID] = m.Role
		ids = append(ids, m.UserID)
	}
	if project.ProjectManagerID != nil {
		pm := *project.ProjectManagerID
		if _, ok := roles[pm]; !ok {
			ids = append(ids, pm)
		}
		roles[pm] = models.RoleProjectManager
	}

	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(users))
	for _, u := range users {
		out = append(out, Member{
			UserID:    u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      roles[u.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// AddMember puts userID on the project with role, defaulting to
// TEAM_MEMBER. Adding an existing member changes nothing.
func (s *Service) AddMember(ctx context.Context, actor access.Actor, projectID, userID int64, role string) (*models.ProjectMember, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionAddMember, access.Project(projectID)); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleTeamMember
	}
	if !access.IsKnownRole(role) || role == models.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d not found", ErrInvalidInput, userID)
	}
	if err != nil {
		return nil, err
	}
	limits, err := s.limits.Limits(ctx)
	if err != nil {
		return nil, err
	}

	var (
		membership *models.ProjectMember
		added      bool
	)
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		existing, err := tx.GetProjectMembership(ctx, projectID, userID)
		if err == nil {
			membership = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		n, err := tx.CountProjectMembers(ctx, projectID)
		if err != nil {
			return err
		}
		if err := settings.Check("members per project", n, limits.MaxMembersPerProject); err != nil {
			return err
		}
		membership = &models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
		added = true
		return tx.SaveProjectMembership(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	if added {
		s.notifyAssignment(ctx, actor, project, user, role)
		s.logger.Info("project member added", "project_id", projectID, "member_id", userID, "role", role)
	}
	return membership, nil
}

// Feedback lets a client on the project send a message to its manager.
// Projects without a manager accept the feedback and drop it.
func (s *Service) Feedback(ctx context.Context, actor access.Actor, projectID int64, message string) (*models.NotificationEvent, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionFeedback, access.Project(projectID)); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: feedback message is required", ErrInvalidInput)
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ProjectManagerID == nil {
		s.logger.Info("feedback dropped, project has no manager", "project_id", projectID, "user_id", actor.ID)
		return nil, nil
	}

	return s.notifier.Emit(ctx, actor, *project.ProjectManagerID, events.Event{
		Type:              models.EventClientFeedback,
		Title:             "Client Feedback",
		Message:           fmt.Sprintf("Feedback on '%s' from %s: %s", project.Name, actor.Email, message),
		RelatedEntityType: models.EntityProject,
		RelatedEntityID:   project.ID,
	})
}

// audience is everyone told about project-level changes: members plus the
// manager, deduplicated.
func (s *Service) audience(ctx context.Context, project *models.Project) ([]models.User, error) {
	memberships, err := s.store.ProjectMembershipsByProjects(ctx, []int64{project.ID})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(memberships)+1)
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	if project.ProjectManagerID != nil {
		ids = append(ids, *project.ProjectManagerID)
	}
	return s.store.GetUsers(ctx, distinct(ids))
}
