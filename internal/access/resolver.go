// Package access decides what an actor may see and do. The Resolver turns
// an actor plus its membership records into a visibility Scope; the Policy
// layers role permissions on top of that scope.
package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugh/flow/internal/database/models"
)

// Store is the slice of the entity store the resolver reads.
type Store interface {
	GetOrganizations(ctx context.Context, ids []int64) ([]models.Organization, error)
	OrganizationsByName(ctx context.Context, name string) ([]models.Organization, error)
	OrganizationsByAdmin(ctx context.Context, userID int64) ([]models.Organization, error)
	OrgMembershipsByUser(ctx context.Context, userID int64) ([]models.OrganizationMember, error)
	OrgMembershipsByOrg(ctx context.Context, orgID int64) ([]models.OrganizationMember, error)
	GetProjects(ctx context.Context, ids []int64) ([]models.Project, error)
	ProjectsByOrganizations(ctx context.Context, orgIDs []int64) ([]models.Project, error)
	ProjectsByManager(ctx context.Context, userID int64) ([]models.Project, error)
	ProjectMembershipsByUser(ctx context.Context, userID int64) ([]models.ProjectMember, error)
	ProjectMembershipsByProjects(ctx context.Context, projectIDs []int64) ([]models.ProjectMember, error)
	TasksByProjects(ctx context.Context, projectIDs []int64) ([]models.Task, error)
	TasksByAssignee(ctx context.Context, userID int64) ([]models.Task, error)
	TasksByCreator(ctx context.Context, userID int64) ([]models.Task, error)
}

type Resolver struct {
	store        Store
	reservedName string
	logger       *slog.Logger
}

// NewResolver builds a resolver. reservedName identifies the system
// organization SUPER_ADMIN views are narrowed to.
func NewResolver(store Store, reservedName string, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, reservedName: reservedName, logger: logger}
}

// ReservedOrganization returns the system organization, or nil when none
// exists. Names are matched case-insensitively and the lowest id wins.
func (r *Resolver) ReservedOrganization(ctx context.Context) (*models.Organization, error) {
	orgs, err := r.store.OrganizationsByName(ctx, r.reservedName)
	if err != nil {
		return nil, fmt.Errorf("reserved organization: %w", err)
	}
	if len(orgs) == 0 {
		return nil, nil
	}
	if len(orgs) > 1 {
		r.logger.Warn("multiple organizations match the reserved name", "name", r.reservedName, "count", len(orgs))
	}
	best := orgs[0]
	for _, o := range orgs[1:] {
		if o.ID < best.ID {
			best = o
		}
	}
	return &best, nil
}

// Resolve computes the actor's full visibility scope. Rules are applied in
// role priority order and the first matching role decides; they do not
// accumulate across roles.
func (r *Resolver) Resolve(ctx context.Context, actor Actor) (*Scope, error) {
	if !actor.IsActive || actor.ID == 0 {
		return EmptyScope(), nil
	}

	switch actor.PrimaryRole() {
	case models.RoleSuperAdmin:
		return r.resolveSuperAdmin(ctx)
	case models.RoleOrgAdmin:
		return r.resolveOrgAdmin(ctx, actor)
	case models.RoleProjectManager:
		return r.resolveProjectManager(ctx, actor)
	case models.RoleTeamMember, models.RoleClient:
		return r.resolveParticipant(ctx, actor)
	default:
		return EmptyScope(), nil
	}
}

func (r *Resolver) VisibleOrganizations(ctx context.Context, actor Actor) ([]int64, error) {
	scope, err := r.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	return scope.OrganizationIDs(), nil
}

func (r *Resolver) VisibleProjects(ctx context.Context, actor Actor) ([]int64, error) {
	scope, err := r.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	return scope.ProjectIDs(), nil
}

func (r *Resolver) VisibleTasks(ctx context.Context, actor Actor) ([]int64, error) {
	scope, err := r.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	return scope.TaskIDs(), nil
}

// SUPER_ADMIN operational views cover the reserved organization only, and
// ignore its active flag.
func (r *Resolver) resolveSuperAdmin(ctx context.Context) (*Scope, error) {
	org, err := r.ReservedOrganization(ctx)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return EmptyScope(), nil
	}

	orgs := map[int64]models.Organization{org.ID: *org}
	projects, err := r.projectsOf(ctx, orgs)
	if err != nil {
		return nil, err
	}
	tasks, err := r.tasksOf(ctx, projects)
	if err != nil {
		return nil, err
	}
	return newScope(orgs, projects, tasks), nil
}

func (r *Resolver) resolveOrgAdmin(ctx context.Context, actor Actor) (*Scope, error) {
	administered, err := r.store.OrganizationsByAdmin(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("organizations by admin: %w", err)
	}
	memberOrgIDs, err := r.memberOrgIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	ids := make(idSet)
	for _, o := range administered {
		ids.add(o.ID)
	}
	ids.addAll(memberOrgIDs)

	orgs, err := r.activeOrganizations(ctx, ids)
	if err != nil {
		return nil, err
	}
	projects, err := r.projectsOf(ctx, orgs)
	if err != nil {
		return nil, err
	}
	tasks, err := r.tasksOf(ctx, projects)
	if err != nil {
		return nil, err
	}
	return newScope(orgs, projects, tasks), nil
}

func (r *Resolver) resolveProjectManager(ctx context.Context, actor Actor) (*Scope, error) {
	candidates, err := r.managedAndMemberProjects(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	memberOrgIDs, err := r.memberOrgIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	orgIDs := make(idSet)
	orgIDs.addAll(memberOrgIDs)
	for _, p := range candidates {
		orgIDs.add(p.OrganizationID)
	}
	orgs, err := r.activeOrganizations(ctx, orgIDs)
	if err != nil {
		return nil, err
	}

	projects := keepProjectsIn(candidates, orgs)
	tasks, err := r.tasksOf(ctx, projects)
	if err != nil {
		return nil, err
	}
	return newScope(orgs, projects, tasks), nil
}

// TEAM_MEMBER and CLIENT see tasks assigned to or created by them plus
// everything in projects they are members of.
func (r *Resolver) resolveParticipant(ctx context.Context, actor Actor) (*Scope, error) {
	memberships, err := r.store.ProjectMembershipsByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("project memberships by user: %w", err)
	}
	assigned, err := r.store.TasksByAssignee(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("tasks by assignee: %w", err)
	}
	created, err := r.store.TasksByCreator(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("tasks by creator: %w", err)
	}

	memberProjectIDs := make(idSet)
	for _, m := range memberships {
		memberProjectIDs.add(m.ProjectID)
	}
	projectIDs := make(idSet)
	projectIDs.addAll(memberProjectIDs.sorted())
	direct := append(assigned, created...)
	for _, t := range direct {
		projectIDs.add(t.ProjectID)
	}

	candidates, err := r.store.GetProjects(ctx, projectIDs.sorted())
	if err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}
	memberOrgIDs, err := r.memberOrgIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	orgIDs := make(idSet)
	orgIDs.addAll(memberOrgIDs)
	for _, p := range candidates {
		orgIDs.add(p.OrganizationID)
	}
	orgs, err := r.activeOrganizations(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	projects := keepProjectsIn(candidates, orgs)

	var visibleMemberProjects []int64
	for _, id := range memberProjectIDs.sorted() {
		if _, ok := projects[id]; ok {
			visibleMemberProjects = append(visibleMemberProjects, id)
		}
	}
	memberTasks, err := r.store.TasksByProjects(ctx, visibleMemberProjects)
	if err != nil {
		return nil, fmt.Errorf("tasks by project: %w", err)
	}

	tasks := make(map[int64]models.Task)
	for _, t := range append(memberTasks, direct...) {
		if _, ok := projects[t.ProjectID]; ok {
			tasks[t.ID] = t
		}
	}
	return newScope(orgs, projects, tasks), nil
}

// VisibleMembers returns the user ids of orgID's members the actor may
// list, sorted. A PROJECT_MANAGER only sees people it works with.
func (r *Resolver) VisibleMembers(ctx context.Context, actor Actor, orgID int64) ([]int64, error) {
	if !actor.IsActive || actor.ID == 0 {
		return nil, nil
	}

	switch actor.PrimaryRole() {
	case models.RoleSuperAdmin:
		return r.orgMemberIDs(ctx, orgID, nil)
	case models.RoleOrgAdmin:
		scope, err := r.resolveOrgAdmin(ctx, actor)
		if err != nil {
			return nil, err
		}
		if !scope.HasOrganization(orgID) {
			return nil, nil
		}
		return r.orgMemberIDs(ctx, orgID, nil)
	case models.RoleProjectManager:
		return r.projectManagerMembers(ctx, actor, orgID)
	default:
		return nil, nil
	}
}

func (r *Resolver) projectManagerMembers(ctx context.Context, actor Actor, orgID int64) ([]int64, error) {
	orgs, err := r.activeOrganizations(ctx, idSet{orgID: {}})
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, nil
	}

	candidates, err := r.managedAndMemberProjects(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	var projectIDs []int64
	colleagues := idSet{actor.ID: {}}
	for _, p := range candidates {
		if p.OrganizationID != orgID {
			continue
		}
		projectIDs = append(projectIDs, p.ID)
		if p.ProjectManagerID != nil {
			colleagues.add(*p.ProjectManagerID)
		}
	}

	if len(projectIDs) == 0 {
		memberOrgIDs, err := r.memberOrgIDs(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range memberOrgIDs {
			if id == orgID {
				return []int64{actor.ID}, nil
			}
		}
		return nil, nil
	}

	members, err := r.store.ProjectMembershipsByProjects(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("project memberships by project: %w", err)
	}
	for _, m := range members {
		colleagues.add(m.UserID)
	}
	return r.orgMemberIDs(ctx, orgID, colleagues)
}

// orgMemberIDs lists the organization's live members, optionally limited to
// the ids in only.
func (r *Resolver) orgMemberIDs(ctx context.Context, orgID int64, only idSet) ([]int64, error) {
	members, err := r.store.OrgMembershipsByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("organization memberships: %w", err)
	}
	ids := make(idSet)
	for _, m := range members {
		if m.IsDeleted() {
			continue
		}
		if only != nil && !only.has(m.UserID) {
			continue
		}
		ids.add(m.UserID)
	}
	return ids.sorted(), nil
}

func (r *Resolver) memberOrgIDs(ctx context.Context, userID int64) ([]int64, error) {
	memberships, err := r.store.OrgMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("organization memberships by user: %w", err)
	}
	ids := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		if !m.IsDeleted() {
			ids = append(ids, m.OrganizationID)
		}
	}
	return ids, nil
}

func (r *Resolver) managedAndMemberProjects(ctx context.Context, userID int64) ([]models.Project, error) {
	managed, err := r.store.ProjectsByManager(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("projects by manager: %w", err)
	}
	memberships, err := r.store.ProjectMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("project memberships by user: %w", err)
	}

	ids := make(idSet)
	for _, m := range memberships {
		ids.add(m.ProjectID)
	}
	member, err := r.store.GetProjects(ctx, ids.sorted())
	if err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}

	seen := make(idSet)
	var out []models.Project
	for _, p := range append(managed, member...) {
		if seen.has(p.ID) {
			continue
		}
		seen.add(p.ID)
		out = append(out, p)
	}
	return out, nil
}

// activeOrganizations loads ids, silently skipping ids that no longer
// resolve and organizations that are deactivated.
func (r *Resolver) activeOrganizations(ctx context.Context, ids idSet) (map[int64]models.Organization, error) {
	orgs, err := r.store.GetOrganizations(ctx, ids.sorted())
	if err != nil {
		return nil, fmt.Errorf("get organizations: %w", err)
	}
	out := make(map[int64]models.Organization, len(orgs))
	for _, o := range orgs {
		if o.IsActive {
			out[o.ID] = o
		}
	}
	return out, nil
}

func (r *Resolver) projectsOf(ctx context.Context, orgs map[int64]models.Organization) (map[int64]models.Project, error) {
	ids := make(idSet)
	for id := range orgs {
		ids.add(id)
	}
	projects, err := r.store.ProjectsByOrganizations(ctx, ids.sorted())
	if err != nil {
		return nil, fmt.Errorf("projects by organization: %w", err)
	}
	out := make(map[int64]models.Project, len(projects))
	for _, p := range projects {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Resolver) tasksOf(ctx context.Context, projects map[int64]models.Project) (map[int64]models.Task, error) {
	ids := make(idSet)
	for id := range projects {
		ids.add(id)
	}
	tasks, err := r.store.TasksByProjects(ctx, ids.sorted())
	if err != nil {
		return nil, fmt.Errorf("tasks by project: %w", err)
	}
	out := make(map[int64]models.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out, nil
}

func keepProjectsIn(projects []models.Project, orgs map[int64]models.Organization) map[int64]models.Project {
	out := make(map[int64]models.Project, len(projects))
	for _, p := range projects {
		if _, ok := orgs[p.OrganizationID]; ok {
			out[p.ID] = p
		}
	}
	return out
}
