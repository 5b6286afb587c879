package dashboard

import "github.com/hugh/flow/internal/access"

// RoleStats is the per-role dashboard summary. The concrete type depends on
// the actor's primary role.
type RoleStats interface {
	PrimaryRole() string
}

type SuperAdminStats struct {
	Role                string `json:"role"`
	TotalOrganizations  int64  `json:"total_organizations"`
	TotalUsers          int64  `json:"total_users"`
	TotalProjects       int64  `json:"total_projects"`
	ActiveOrganizations int64  `json:"active_organizations"`
}

type OrgAdminStats struct {
	Role           string `json:"role"`
	TotalProjects  int64  `json:"total_projects"`
	ActiveProjects int64  `json:"active_projects"`
	TeamMembers    int64  `json:"team_members"`
	TotalTasks     int64  `json:"total_tasks"`
	CompletedTasks int64  `json:"completed_tasks"`
	OverdueTasks   int64  `json:"overdue_tasks"`
}

type ProjectManagerStats struct {
	Role            string `json:"role"`
	TotalProjects   int64  `json:"total_projects"`
	ActiveProjects  int64  `json:"active_projects"`
	TotalTasks      int64  `json:"total_tasks"`
	CompletedTasks  int64  `json:"completed_tasks"`
	InProgressTasks int64  `json:"in_progress_tasks"`
	TeamMembers     int64  `json:"team_members"`
	OverdueTasks    int64  `json:"overdue_tasks"`
}

type TeamMemberStats struct {
	Role            string `json:"role"`
	AssignedTasks   int64  `json:"assigned_tasks"`
	TodoTasks       int64  `json:"todo_tasks"`
	InProgressTasks int64  `json:"in_progress_tasks"`
	CompletedTasks  int64  `json:"completed_tasks"`
	DueSoon         int64  `json:"due_soon"`
	ActiveProjects  int64  `json:"active_projects"`
}

type ClientStats struct {
	Role           string `json:"role"`
	ActiveProjects int64  `json:"active_projects"`
	TotalTasks     int64  `json:"total_tasks"`
	CompletedTasks int64  `json:"completed_tasks"`
	CompletionRate string `json:"completion_rate"`
}

// DefaultStats is returned for actors without a recognised role.
type DefaultStats struct {
	Role           string `json:"role"`
	ActiveProjects int64  `json:"active_projects"`
	TotalTasks     int64  `json:"total_tasks"`
	CompletedTasks int64  `json:"completed_tasks"`
}

func (s *SuperAdminStats) PrimaryRole() string     { return s.Role }
func (s *OrgAdminStats) PrimaryRole() string       { return s.Role }
func (s *ProjectManagerStats) PrimaryRole() string { return s.Role }
func (s *TeamMemberStats) PrimaryRole() string     { return s.Role }
func (s *ClientStats) PrimaryRole() string         { return s.Role }
func (s *DefaultStats) PrimaryRole() string        { return s.Role }

func defaultStats() *DefaultStats {
	return &DefaultStats{Role: access.RoleUnknown}
}
