package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/testutil"
	"github.com/hugh/flow/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Wednesday, 2024-05-15 09:30 UTC.
var fixedNow = time.Date(2024, time.May, 15, 9, 30, 0, 0, time.UTC)

func newTestAggregator(t *testing.T, db *gorm.DB) *Aggregator {
	t.Helper()
	s := store.New(db)
	r := access.NewResolver(s, "Flow", util.DiscardLogger())
	return NewAggregator(s, r, time.UTC, util.DiscardLogger()).WithClock(func() time.Time { return fixedNow })
}

func daysFromNow(n int) *time.Time {
	d := fixedNow.AddDate(0, 0, n)
	return &d
}

// O is active with ORG_ADMIN U1; P in O is managed by U2; T in P is
// assigned to U3, due in three days, todo, high.
type scenario struct {
	org        *models.Organization
	project    *models.Project
	task       *models.Task
	u1, u2, u3 *models.User
}

func buildScenario(t *testing.T, db *gorm.DB) scenario {
	t.Helper()
	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	u1 := testutil.CreateTestUser(t, db, models.RoleOrgAdmin)
	u2 := testutil.CreateTestUser(t, db, models.RoleProjectManager)
	u3 := testutil.CreateTestUser(t, db, models.RoleTeamMember)

	org := testutil.CreateTestOrg(t, db, "O", creator)
	testutil.SetOrgAdmin(t, db, org, u1)
	project := testutil.CreateTestProject(t, db, org, creator, u2)
	task := testutil.CreateTestTask(t, db, project, u2, testutil.TaskOpts{
		Status:   "todo",
		Priority: "high",
		Due:      daysFromNow(3),
		Assignee: u3,
	})
	return scenario{org: org, project: project, task: task, u1: u1, u2: u2, u3: u3}
}

func TestEndToEndScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := newTestAggregator(t, db)
	ctx := testutil.TestContext(t)
	sc := buildScenario(t, db)

	deadlines, err := a.UpcomingDeadlines(ctx, access.ActorFromUser(sc.u3), 7)
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.Equal(t, sc.task.ID, deadlines[0].TaskID)
	assert.Equal(t, sc.project.Name, deadlines[0].Project)

	stats, err := a.Stats(ctx, access.ActorFromUser(sc.u1))
	require.NoError(t, err)
	oa, ok := stats.(*OrgAdminStats)
	require.True(t, ok, "got %T", stats)
	assert.EqualValues(t, 1, oa.ActiveProjects)
	assert.EqualValues(t, 1, oa.TotalTasks)
	assert.EqualValues(t, 0, oa.CompletedTasks)
	assert.EqualValues(t, 0, oa.OverdueTasks)

	stats, err = a.Stats(ctx, access.ActorFromUser(sc.u3))
	require.NoError(t, err)
	tm, ok := stats.(*TeamMemberStats)
	require.True(t, ok, "got %T", stats)
	assert.EqualValues(t, 1, tm.DueSoon)
	assert.EqualValues(t, 1, tm.AssignedTasks)
	assert.EqualValues(t, 1, tm.TodoTasks)

	stats, err = a.Stats(ctx, access.ActorFromUser(sc.u2))
	require.NoError(t, err)
	pm, ok := stats.(*ProjectManagerStats)
	require.True(t, ok, "got %T", stats)
	assert.EqualValues(t, 1, pm.TotalProjects)
	assert.EqualValues(t, 1, pm.TotalTasks)
}

func TestStats_OverdueCounting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := newTestAggregator(t, db)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	oa := testutil.CreateTestUser(t, db, models.RoleOrgAdmin)
	org := testutil.CreateTestOrg(t, db, "Acme", creator)
	testutil.SetOrgAdmin(t, db, org, oa)
	testutil.AddOrgMember(t, db, org, oa, models.RoleOrgAdmin)
	project := testutil.CreateTestProject(t, db, org, creator, nil)

	// Late and open.
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{Status: "todo", Priority: "medium", Due: daysFromNow(-1)})
	// Not due yet but urgent.
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{Status: "todo", Priority: "URGENT", Due: daysFromNow(30)})
	// Late but finished.
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{Status: "Completed", Priority: "medium", Due: daysFromNow(-1)})
	// Due today is not late.
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{Status: "in-progress", Due: daysFromNow(0)})

	stats, err := a.Stats(ctx, access.ActorFromUser(oa))
	require.NoError(t, err)
	s := stats.(*OrgAdminStats)

	assert.EqualValues(t, 4, s.TotalTasks)
	assert.EqualValues(t, 1, s.CompletedTasks)
	assert.EqualValues(t, 2, s.OverdueTasks)
	assert.EqualValues(t, 1, s.TeamMembers)
}

func TestStats_SuperAdminIsSystemWide(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := newTestAggregator(t, db)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	testutil.CreateTestOrg(t, db, "Flow", sa)
	other := testutil.CreateTestOrg(t, db, "Acme", sa)
	inactive := testutil.CreateTestOrg(t, db, "Gone", sa)
	testutil.DeactivateOrg(t, db, inactive)
	testutil.CreateTestProject(t, db, other, sa, nil)

	stats, err := a.Stats(ctx, access.ActorFromUser(sa))
	require.NoError(t, err)
	s := stats.(*SuperAdminStats)

	assert.Equal(t, models.RoleSuperAdmin, s.PrimaryRole())
	assert.EqualValues(t, 3, s.TotalOrganizations)
	assert.EqualValues(t, 2, s.ActiveOrganizations)
	assert.EqualValues(t, 1, s.TotalProjects)
	assert.EqualValues(t, 1, s.TotalUsers)
}

func TestStats_Client(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := newTestAggregator(t, db)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	client := testutil.CreateTestUser(t, db, models.RoleClient)
	org := testutil.CreateTestOrg(t, db, "Acme", creator)
	project := testutil.CreateTestProject(t, db, org, creator, nil)
	testutil.AddProjectMember(t, db, project, client, models.RoleClient)

	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{Status: "done"})
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{Status: "todo"})
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{Status: "review"})

	stats, err := a.Stats(ctx, access.ActorFromUser(client))
	require.NoError(t, err)
	s := stats.(*ClientStats)

	assert.EqualValues(t, 1, s.ActiveProjects)
	assert.EqualValues(t, 3, s.TotalTasks)
	assert.EqualValues(t, 1, s.CompletedTasks)
	assert.Equal(t, "33.3%", s.CompletionRate)
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, "0.0%", CompletionRate(0, 0))
	assert.Equal(t, "100.0%", CompletionRate(4, 4))
	assert.Equal(t, "66.7%", CompletionRate(2, 3))
}

func TestStats_UnknownRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := newTestAggregator(t, db)

	u := testutil.CreateTestUser(t, db, "AUDITOR")
	stats, err := a.Stats(testutil.TestContext(t), access.ActorFromUser(u))
	require.NoError(t, err)

	s, ok := stats.(*DefaultStats)
	require.True(t, ok)
	assert.Equal(t, access.RoleUnknown, s.Role)
	assert.Zero(t, s.TotalTasks)
}

type flakyStore struct {
	*store.Store
}

func (flakyStore) CountOrgMembers(context.Context, int64) (int64, error) {
	return 0, errors.New("timeout")
}

func (flakyStore) CountUsers(context.Context) (int64, error) {
	return 0, errors.New("timeout")
}

func TestStats_SubMetricFailureDegradesToZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	r := access.NewResolver(s, "Flow", util.DiscardLogger())
	a := NewAggregator(flakyStore{s}, r, time.UTC, util.DiscardLogger()).WithClock(func() time.Time { return fixedNow })
	ctx := testutil.TestContext(t)
	sc := buildScenario(t, db)

	stats, err := a.Stats(ctx, access.ActorFromUser(sc.u1))
	require.NoError(t, err)
	oa := stats.(*OrgAdminStats)
	assert.Zero(t, oa.TeamMembers)
	assert.EqualValues(t, 1, oa.TotalTasks)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	stats, err = a.Stats(ctx, access.ActorFromUser(sa))
	require.NoError(t, err)
	sas := stats.(*SuperAdminStats)
	assert.Zero(t, sas.TotalUsers)
	assert.EqualValues(t, 1, sas.TotalOrganizations)
}

type brokenResolver struct{}

func (brokenResolver) Resolve(context.Context, access.Actor) (*access.Scope, error) {
	return nil, errors.New("database unavailable")
}

func (brokenResolver) ReservedOrganization(context.Context) (*models.Organization, error) {
	return nil, errors.New("database unavailable")
}

func TestStats_ScopeFailurePropagates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := NewAggregator(store.New(db), brokenResolver{}, time.UTC, util.DiscardLogger())

	u := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	_, err := a.Stats(testutil.TestContext(t), access.ActorFromUser(u))
	assert.Error(t, err)
}

// interleavingStore runs a write between two sub-metric lookups.
type interleavingStore struct {
	*store.Store
	afterCountUsers func()
}

func (s *interleavingStore) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.Store.CountUsers(ctx)
	if s.afterCountUsers != nil {
		s.afterCountUsers()
		s.afterCountUsers = nil
	}
	return n, err
}

// Sub-metrics are separate reads without a shared snapshot. A write that
// lands between them shows up in the later counts only; the next call is
// consistent again. This eventual-consistency window is accepted.
func TestStats_TornSnapshotUnderConcurrentWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	testutil.CreateTestOrg(t, db, "Flow", sa)

	s := &interleavingStore{Store: store.New(db)}
	s.afterCountUsers = func() { testutil.CreateTestOrg(t, db, "Late", sa) }
	r := access.NewResolver(s.Store, "Flow", util.DiscardLogger())
	a := NewAggregator(s, r, time.UTC, util.DiscardLogger()).WithClock(func() time.Time { return fixedNow })

	got, err := a.Stats(ctx, access.ActorFromUser(sa))
	require.NoError(t, err)
	torn, ok := got.(*SuperAdminStats)
	require.True(t, ok)
	assert.EqualValues(t, 1, torn.TotalOrganizations)
	assert.EqualValues(t, 2, torn.ActiveOrganizations, "write between lookups is visible to later sub-metrics")

	got, err = a.Stats(ctx, access.ActorFromUser(sa))
	require.NoError(t, err)
	settled := got.(*SuperAdminStats)
	assert.EqualValues(t, 2, settled.TotalOrganizations)
	assert.EqualValues(t, 2, settled.ActiveOrganizations)
}
