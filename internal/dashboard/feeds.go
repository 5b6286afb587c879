package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/status"
)

const (
	ActivityOrganization = "organization"
	ActivityProject      = "project"
	ActivityTask         = "task"
)

type Activity struct {
	Type        string    `json:"type"`
	EntityID    int64     `json:"entity_id,string"`
	Title       string    `json:"title"`
	ProjectName string    `json:"project_name"`
	Time        time.Time `json:"time"`
}

type Deadline struct {
	TaskID    int64     `json:"task_id,string"`
	Task      string    `json:"task"`
	ProjectID int64     `json:"project_id,string"`
	Project   string    `json:"project"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	Date      time.Time `json:"date"`
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// RecentActivity lists what changed lately, newest first. SUPER_ADMIN gets
// organization and reserved-organization project creations; everyone else
// gets their most recently touched visible tasks. A non-positive limit
// means the role's full feed: three organizations plus three projects for
// SUPER_ADMIN, MaxItems tasks otherwise.
func (a *Aggregator) RecentActivity(ctx context.Context, actor access.Actor, limit int) ([]Activity, error) {
	if !actor.IsActive {
		return []Activity{}, nil
	}

	switch actor.PrimaryRole() {
	case access.RoleUnknown:
		return []Activity{}, nil
	case models.RoleSuperAdmin:
		return a.superAdminActivity(ctx, clampLimit(limit, 2*superAdminFeedSize))
	}
	limit = clampLimit(limit, MaxItems)

	scope, err := a.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	tasks := make([]models.Task, len(scope.Tasks))
	copy(tasks, scope.Tasks)
	sort.SliceStable(tasks, func(i, j int) bool {
		ti, tj := tasks[i].LastTouched(), tasks[j].LastTouched()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return tasks[i].ID > tasks[j].ID
	})
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}

	out := make([]Activity, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Activity{
			Type:        ActivityTask,
			EntityID:    t.ID,
			Title:       fmt.Sprintf("Task '%s' updated", t.Title),
			ProjectName: projectName(scope, t.ProjectID),
			Time:        t.LastTouched(),
		})
	}
	return out, nil
}

func (a *Aggregator) superAdminActivity(ctx context.Context, limit int) ([]Activity, error) {
	orgs, err := a.store.RecentOrganizations(ctx, superAdminFeedSize)
	if err != nil {
		return nil, fmt.Errorf("recent organizations: %w", err)
	}

	out := make([]Activity, 0, 2*superAdminFeedSize)
	for _, o := range orgs {
		out = append(out, Activity{
			Type:        ActivityOrganization,
			EntityID:    o.ID,
			Title:       fmt.Sprintf("Organization '%s' created", o.Name),
			ProjectName: "-",
			Time:        o.CreatedAt,
		})
	}

	reserved, err := a.resolver.ReservedOrganization(ctx)
	if err != nil {
		return nil, err
	}
	if reserved != nil {
		projects, err := a.store.RecentProjects(ctx, reserved.ID, superAdminFeedSize)
		if err != nil {
			return nil, fmt.Errorf("recent projects: %w", err)
		}
		for _, p := range projects {
			out = append(out, Activity{
				Type:        ActivityProject,
				EntityID:    p.ID,
				Title:       fmt.Sprintf("Project '%s' added", p.Name),
				ProjectName: reserved.Name,
				Time:        p.CreatedAt,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpcomingDeadlines lists visible, unfinished tasks due within
// [today, today+withinDays], soonest first.
func (a *Aggregator) UpcomingDeadlines(ctx context.Context, actor access.Actor, withinDays int) ([]Deadline, error) {
	if withinDays <= 0 {
		withinDays = DefaultWindowDays
	}
	if !actor.IsActive || actor.PrimaryRole() == access.RoleUnknown {
		return []Deadline{}, nil
	}

	scope, err := a.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	today := a.today()
	horizon := today.AddDate(0, 0, withinDays)

	var due []models.Task
	for _, t := range scope.Tasks {
		if t.DueDate == nil || status.IsCompleted(t.Status) {
			continue
		}
		if dueWithin(*t.DueDate, today, horizon, a.loc) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		di, dj := *due[i].DueDate, *due[j].DueDate
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return due[i].ID < due[j].ID
	})
	if len(due) > MaxItems {
		due = due[:MaxItems]
	}

	out := make([]Deadline, 0, len(due))
	for _, t := range due {
		out = append(out, Deadline{
			TaskID:    t.ID,
			Task:      t.Title,
			ProjectID: t.ProjectID,
			Project:   projectName(scope, t.ProjectID),
			Status:    status.Normalize(t.Status),
			Priority:  status.NormalizePriority(t.Priority),
			Date:      *t.DueDate,
		})
	}
	return out, nil
}

func projectName(scope *access.Scope, id int64) string {
	if p, ok := scope.Project(id); ok {
		return p.Name
	}
	return "Unknown"
}
