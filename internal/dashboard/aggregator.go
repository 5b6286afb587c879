// Package dashboard computes role-specific summaries over an actor's
// visibility scope.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/metrics"
	"github.com/hugh/flow/internal/status"
	"github.com/hugh/flow/pkg/util"
)

const (
	// MaxItems caps recent activity and upcoming deadline lists.
	MaxItems = 5
	// DefaultWindowDays is the upcoming-deadline and due-soon horizon.
	DefaultWindowDays = 7

	superAdminFeedSize = 3
)

type Store interface {
	CountOrganizations(ctx context.Context) (int64, error)
	CountActiveOrganizations(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountProjects(ctx context.Context) (int64, error)
	CountOrgMembers(ctx context.Context, orgID int64) (int64, error)
	ProjectMembershipsByUser(ctx context.Context, userID int64) ([]models.ProjectMember, error)
	ProjectMembershipsByProjects(ctx context.Context, projectIDs []int64) ([]models.ProjectMember, error)
	RecentOrganizations(ctx context.Context, limit int) ([]models.Organization, error)
	RecentProjects(ctx context.Context, orgID int64, limit int) ([]models.Project, error)
}

type ScopeResolver interface {
	Resolve(ctx context.Context, actor access.Actor) (*access.Scope, error)
	ReservedOrganization(ctx context.Context) (*models.Organization, error)
}

type Aggregator struct {
	store    Store
	resolver ScopeResolver
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewAggregator(store Store, resolver ScopeResolver, loc *time.Location, logger *slog.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		store:    store,
		resolver: resolver,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

func (a *Aggregator) WithMetrics(m *metrics.Metrics) *Aggregator {
	a.metrics = m
	return a
}

// WithClock replaces the time source.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

func (a *Aggregator) today() time.Time {
	return util.StartOfDay(a.now(), a.loc)
}

// Stats returns the summary for the actor's primary role.
func (a *Aggregator) Stats(ctx context.Context, actor access.Actor) (RoleStats, error) {
	if !actor.IsActive {
		return defaultStats(), nil
	}

	role := actor.PrimaryRole()
	if role == models.RoleSuperAdmin {
		return a.superAdminStats(ctx), nil
	}
	if role == access.RoleUnknown {
		return defaultStats(), nil
	}

	scope, err := a.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	switch role {
	case models.RoleOrgAdmin:
		return a.orgAdminStats(ctx, scope), nil
	case models.RoleProjectManager:
		return a.projectManagerStats(ctx, actor, scope), nil
	case models.RoleTeamMember:
		return a.teamMemberStats(ctx, actor, scope), nil
	default:
		return a.clientStats(ctx, actor, scope), nil
	}
}

// SUPER_ADMIN counts are system-wide rather than scoped.
func (a *Aggregator) superAdminStats(ctx context.Context) *SuperAdminStats {
	return &SuperAdminStats{
		Role:                models.RoleSuperAdmin,
		TotalOrganizations:  a.metric("total_organizations", func() (int64, error) { return a.store.CountOrganizations(ctx) }),
		TotalUsers:          a.metric("total_users", func() (int64, error) { return a.store.CountUsers(ctx) }),
		TotalProjects:       a.metric("total_projects", func() (int64, error) { return a.store.CountProjects(ctx) }),
		ActiveOrganizations: a.metric("active_organizations", func() (int64, error) { return a.store.CountActiveOrganizations(ctx) }),
	}
}

func (a *Aggregator) orgAdminStats(ctx context.Context, scope *access.Scope) *OrgAdminStats {
	today := a.today()
	stats := &OrgAdminStats{Role: models.RoleOrgAdmin}

	for _, org := range scope.Organizations {
		orgID := org.ID
		projects := scope.ProjectsIn(orgID)
		stats.TotalProjects += int64(len(projects))
		for _, p := range projects {
			if p.IsActive {
				stats.ActiveProjects++
			}
		}
		stats.TeamMembers += a.metric("team_members", func() (int64, error) { return a.store.CountOrgMembers(ctx, orgID) }, "organization_id", orgID)

		tasks := scope.TasksIn(projectIDs(projects)...)
		stats.TotalTasks += int64(len(tasks))
		for _, t := range tasks {
			if status.IsCompleted(t.Status) {
				stats.CompletedTasks++
			}
			if status.IsOverdue(t.Status, t.Priority, t.DueDate, today) {
				stats.OverdueTasks++
			}
		}
	}
	return stats
}

func (a *Aggregator) projectManagerStats(ctx context.Context, actor access.Actor, scope *access.Scope) *ProjectManagerStats {
	today := a.today()
	stats := &ProjectManagerStats{Role: models.RoleProjectManager}

	var managed []models.Project
	for _, p := range scope.Projects {
		if p.ManagedBy(actor.ID) {
			managed = append(managed, p)
		}
	}
	stats.TotalProjects = int64(len(managed))
	for _, p := range managed {
		if p.IsActive {
			stats.ActiveProjects++
		}
	}

	ids := projectIDs(managed)
	for _, t := range scope.TasksIn(ids...) {
		stats.TotalTasks++
		if status.IsCompleted(t.Status) {
			stats.CompletedTasks++
		}
		if status.IsInProgress(t.Status) {
			stats.InProgressTasks++
		}
		if status.IsOverdue(t.Status, t.Priority, t.DueDate, today) {
			stats.OverdueTasks++
		}
	}

	stats.TeamMembers = a.metric("team_members", func() (int64, error) {
		if len(ids) == 0 {
			return 0, nil
		}
		members, err := a.store.ProjectMembershipsByProjects(ctx, ids)
		if err != nil {
			return 0, err
		}
		distinct := make(map[int64]struct{}, len(members))
		for _, m := range members {
			distinct[m.UserID] = struct{}{}
		}
		return int64(len(distinct)), nil
	})
	return stats
}

func (a *Aggregator) teamMemberStats(ctx context.Context, actor access.Actor, scope *access.Scope) *TeamMemberStats {
	today := a.today()
	horizon := today.AddDate(0, 0, DefaultWindowDays)
	stats := &TeamMemberStats{Role: models.RoleTeamMember}

	for _, t := range scope.Tasks {
		if !t.AssignedTo(actor.ID) {
			continue
		}
		stats.AssignedTasks++
		switch {
		case status.IsCompleted(t.Status):
			stats.CompletedTasks++
		case status.IsInProgress(t.Status):
			stats.InProgressTasks++
		case status.IsTodo(t.Status):
			stats.TodoTasks++
		}
		if t.DueDate != nil && dueWithin(*t.DueDate, today, horizon, a.loc) {
			stats.DueSoon++
		}
	}

	stats.ActiveProjects = a.metric("active_projects", func() (int64, error) {
		ids, err := a.memberProjects(ctx, actor, scope)
		return int64(len(ids)), err
	})
	return stats
}

func (a *Aggregator) clientStats(ctx context.Context, actor access.Actor, scope *access.Scope) *ClientStats {
	stats := &ClientStats{Role: models.RoleClient}

	ids, err := a.memberProjects(ctx, actor, scope)
	if err != nil {
		a.logger.Warn("dashboard sub-metric failed", "metric", "active_projects", "error", err)
		a.metrics.DashboardDegraded("active_projects")
	}
	stats.ActiveProjects = int64(len(ids))

	for _, t := range scope.TasksIn(ids...) {
		stats.TotalTasks++
		if status.IsCompleted(t.Status) {
			stats.CompletedTasks++
		}
	}
	stats.CompletionRate = CompletionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats
}

// CompletionRate formats completed/total as a percentage with one decimal.
func CompletionRate(completed, total int64) string {
	rate := 0.0
	if total > 0 {
		rate = float64(completed) * 100 / float64(total)
	}
	return fmt.Sprintf("%.1f%%", rate)
}

// memberProjects lists the visible projects the actor holds a project
// membership in.
func (a *Aggregator) memberProjects(ctx context.Context, actor access.Actor, scope *access.Scope) ([]int64, error) {
	memberships, err := a.store.ProjectMembershipsByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(memberships))
	var ids []int64
	for _, m := range memberships {
		if scope.HasProject(m.ProjectID) && !seen[m.ProjectID] {
			seen[m.ProjectID] = true
			ids = append(ids, m.ProjectID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// metric runs one count; a failure is logged and reported as zero so the
// rest of the dashboard still renders.
func (a *Aggregator) metric(name string, fn func() (int64, error), attrs ...any) int64 {
	n, err := fn()
	if err != nil {
		args := append([]any{"metric", name, "error", err}, attrs...)
		a.logger.Warn("dashboard sub-metric failed", args...)
		a.metrics.DashboardDegraded(name)
		return 0
	}
	return n
}

func projectIDs(projects []models.Project) []int64 {
	ids := make([]int64, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return ids
}

// dueWithin reports whether due's calendar date is in [from, to].
func dueWithin(due, from, to time.Time, loc *time.Location) bool {
	day := util.StartOfDay(due, loc)
	return !day.Before(from) && !day.After(to)
}
