package orgs

import (
	"context"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
)

// Stats breaks an organization's live memberships down by org-local role.
// Roles other than PROJECT_MANAGER and CLIENT count as team members.
type Stats struct {
	OrganizationID   int64  `json:"organization_id,string"`
	OrganizationName string `json:"organization_name"`
	TotalMembers     int    `json:"total_members"`
	ProjectManagers  int    `json:"project_managers"`
	TeamMembers      int    `json:"team_members"`
	Clients          int    `json:"clients"`
}

func (s *Service) Stats(ctx context.Context, actor access.Actor, orgID int64) (*Stats, error) {
	if err := s.authorizer.Authorize(ctx, actor, access.ActionReadStats, access.Members(orgID)); err != nil {
		return nil, err
	}
	return s.stats(ctx, orgID)
}

// MyStats reports on the actor's own organization: the lowest-id one it
// can see. An actor without one gets empty stats.
func (s *Service) MyStats(ctx context.Context, actor access.Actor) (*Stats, error) {
	if !actor.IsActive || !actor.HasAnyRole(models.RoleSuperAdmin, models.RoleOrgAdmin) {
		return nil, access.ErrAccessDenied
	}
	ids, err := s.visibility.VisibleOrganizations(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &Stats{}, nil
	}
	own := ids[0]
	for _, id := range ids[1:] {
		if id < own {
			own = id
		}
	}
	return s.stats(ctx, own)
}

func (s *Service) stats(ctx context.Context, orgID int64) (*Stats, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.store.OrgMembershipsByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		TotalMembers:     len(memberships),
	}
	for _, m := range memberships {
		switch m.Role {
		case models.RoleProjectManager:
			out.ProjectManagers++
		case models.RoleClient:
			out.Clients++
		default:
			out.TeamMembers++
		}
	}
	return out, nil
}
