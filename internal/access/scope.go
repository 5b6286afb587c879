package access

import (
	"sort"

	"github.com/hugh/flow/internal/database/models"
)

// Scope is the resolved visibility of one actor: the organizations,
// projects and tasks it may see, each sorted by id.
type Scope struct {
	Organizations []models.Organization
	Projects      []models.Project
	Tasks         []models.Task

	orgIdx     map[int64]int
	projectIdx map[int64]int
	taskIdx    map[int64]int
}

func newScope(orgs map[int64]models.Organization, projects map[int64]models.Project, tasks map[int64]models.Task) *Scope {
	s := &Scope{
		orgIdx:     make(map[int64]int, len(orgs)),
		projectIdx: make(map[int64]int, len(projects)),
		taskIdx:    make(map[int64]int, len(tasks)),
	}
	for _, o := range orgs {
		s.Organizations = append(s.Organizations, o)
	}
	for _, p := range projects {
		s.Projects = append(s.Projects, p)
	}
	for _, t := range tasks {
		s.Tasks = append(s.Tasks, t)
	}
	sort.Slice(s.Organizations, func(i, j int) bool { return s.Organizations[i].ID < s.Organizations[j].ID })
	sort.Slice(s.Projects, func(i, j int) bool { return s.Projects[i].ID < s.Projects[j].ID })
	sort.Slice(s.Tasks, func(i, j int) bool { return s.Tasks[i].ID < s.Tasks[j].ID })
	for i, o := range s.Organizations {
		s.orgIdx[o.ID] = i
	}
	for i, p := range s.Projects {
		s.projectIdx[p.ID] = i
	}
	for i, t := range s.Tasks {
		s.taskIdx[t.ID] = i
	}
	return s
}

// EmptyScope sees nothing.
func EmptyScope() *Scope {
	return newScope(nil, nil, nil)
}

func (s *Scope) IsEmpty() bool {
	return len(s.Organizations) == 0 && len(s.Projects) == 0 && len(s.Tasks) == 0
}

func (s *Scope) OrganizationIDs() []int64 {
	ids := make([]int64, len(s.Organizations))
	for i, o := range s.Organizations {
		ids[i] = o.ID
	}
	return ids
}

func (s *Scope) ProjectIDs() []int64 {
	ids := make([]int64, len(s.Projects))
	for i, p := range s.Projects {
		ids[i] = p.ID
	}
	return ids
}

func (s *Scope) TaskIDs() []int64 {
	ids := make([]int64, len(s.Tasks))
	for i, t := range s.Tasks {
		ids[i] = t.ID
	}
	return ids
}

func (s *Scope) HasOrganization(id int64) bool {
	_, ok := s.orgIdx[id]
	return ok
}

func (s *Scope) HasProject(id int64) bool {
	_, ok := s.projectIdx[id]
	return ok
}

func (s *Scope) HasTask(id int64) bool {
	_, ok := s.taskIdx[id]
	return ok
}

func (s *Scope) Organization(id int64) (*models.Organization, bool) {
	i, ok := s.orgIdx[id]
	if !ok {
		return nil, false
	}
	return &s.Organizations[i], true
}

func (s *Scope) Project(id int64) (*models.Project, bool) {
	i, ok := s.projectIdx[id]
	if !ok {
		return nil, false
	}
	return &s.Projects[i], true
}

// ProjectsIn returns the visible projects of one organization.
func (s *Scope) ProjectsIn(orgID int64) []models.Project {
	var out []models.Project
	for _, p := range s.Projects {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out
}

// TasksIn returns the visible tasks of the given projects.
func (s *Scope) TasksIn(projectIDs ...int64) []models.Task {
	want := make(map[int64]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	var out []models.Task
	for _, t := range s.Tasks {
		if want[t.ProjectID] {
			out = append(out, t)
		}
	}
	return out
}
