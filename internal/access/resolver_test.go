package access

import (
	"context"
	"errors"
	"testing"

	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/testutil"
	"github.com/hugh/flow/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestResolver(t *testing.T) (*Resolver, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewResolver(store.New(db), "Flow", util.DiscardLogger()), db
}

func actorOf(u *models.User) Actor {
	return ActorFromUser(u)
}

func TestResolve_SuperAdminSeesOnlyReservedOrganization(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	reserved := testutil.CreateTestOrg(t, db, "flow", sa)
	other := testutil.CreateTestOrg(t, db, "Acme", sa)
	inReserved := testutil.CreateTestProject(t, db, reserved, sa, nil)
	outside := testutil.CreateTestProject(t, db, other, sa, nil)
	task := testutil.CreateTestTask(t, db, inReserved, sa, testutil.TaskOpts{})
	testutil.CreateTestTask(t, db, outside, sa, testutil.TaskOpts{})

	scope, err := r.Resolve(ctx, actorOf(sa))
	require.NoError(t, err)

	assert.Equal(t, []int64{reserved.ID}, scope.OrganizationIDs())
	assert.Equal(t, []int64{inReserved.ID}, scope.ProjectIDs())
	assert.Equal(t, []int64{task.ID}, scope.TaskIDs())
}

func TestResolve_SuperAdminIgnoresInactiveReservedOrganization(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	reserved := testutil.CreateTestOrg(t, db, "Flow", sa)
	testutil.DeactivateOrg(t, db, reserved)

	orgs, err := r.VisibleOrganizations(ctx, actorOf(sa))
	require.NoError(t, err)
	assert.Equal(t, []int64{reserved.ID}, orgs)
}

func TestResolve_SuperAdminWithoutReservedOrganization(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	testutil.CreateTestOrg(t, db, "Acme", sa)

	scope, err := r.Resolve(ctx, actorOf(sa))
	require.NoError(t, err)
	assert.True(t, scope.IsEmpty())
}

func TestReservedOrganization_LowestIDWins(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	first := testutil.CreateTestOrg(t, db, "Flow", sa)
	testutil.CreateTestOrg(t, db, "FLOW", sa)

	org, err := r.ReservedOrganization(ctx)
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, first.ID, org.ID)
}

func TestResolve_OrgAdmin(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	oa := testutil.CreateTestUser(t, db, models.RoleOrgAdmin)

	administered := testutil.CreateTestOrg(t, db, "Administered", creator)
	testutil.SetOrgAdmin(t, db, administered, oa)
	memberOf := testutil.CreateTestOrg(t, db, "Member", creator)
	testutil.AddOrgMember(t, db, memberOf, oa, models.RoleOrgAdmin)
	removed := testutil.CreateTestOrg(t, db, "Removed", creator)
	testutil.AddOrgMember(t, db, removed, oa, models.MembershipDeleted)
	unrelated := testutil.CreateTestOrg(t, db, "Unrelated", creator)

	p1 := testutil.CreateTestProject(t, db, administered, creator, nil)
	p2 := testutil.CreateTestProject(t, db, memberOf, creator, nil)
	testutil.CreateTestProject(t, db, unrelated, creator, nil)
	t1 := testutil.CreateTestTask(t, db, p1, creator, testutil.TaskOpts{})
	t2 := testutil.CreateTestTask(t, db, p2, creator, testutil.TaskOpts{})

	scope, err := r.Resolve(ctx, actorOf(oa))
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{administered.ID, memberOf.ID}, scope.OrganizationIDs())
	assert.ElementsMatch(t, []int64{p1.ID, p2.ID}, scope.ProjectIDs())
	assert.ElementsMatch(t, []int64{t1.ID, t2.ID}, scope.TaskIDs())
}

func TestResolve_DeactivatedOrganizationDisappears(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	oa := testutil.CreateTestUser(t, db, models.RoleOrgAdmin)
	org := testutil.CreateTestOrg(t, db, "Acme", creator)
	testutil.SetOrgAdmin(t, db, org, oa)
	project := testutil.CreateTestProject(t, db, org, creator, nil)
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{})

	before, err := r.Resolve(ctx, actorOf(oa))
	require.NoError(t, err)
	assert.Len(t, before.Organizations, 1)

	testutil.DeactivateOrg(t, db, org)

	after, err := r.Resolve(ctx, actorOf(oa))
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())
}

func TestResolve_ProjectManager(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	pm := testutil.CreateTestUser(t, db, models.RoleProjectManager)

	orgA := testutil.CreateTestOrg(t, db, "A", creator)
	orgB := testutil.CreateTestOrg(t, db, "B", creator)
	orgC := testutil.CreateTestOrg(t, db, "C", creator)
	testutil.AddOrgMember(t, db, orgC, pm, models.RoleProjectManager)

	managed := testutil.CreateTestProject(t, db, orgA, creator, pm)
	member := testutil.CreateTestProject(t, db, orgB, creator, nil)
	testutil.AddProjectMember(t, db, member, pm, models.RoleProjectManager)
	testutil.CreateTestProject(t, db, orgA, creator, nil)

	task := testutil.CreateTestTask(t, db, managed, creator, testutil.TaskOpts{})

	scope, err := r.Resolve(ctx, actorOf(pm))
	require.NoError(t, err)

	assert.Equal(t, sorted(orgA.ID, orgB.ID, orgC.ID), scope.OrganizationIDs())
	assert.Equal(t, sorted(managed.ID, member.ID), scope.ProjectIDs())
	assert.Equal(t, []int64{task.ID}, scope.TaskIDs())
}

func TestResolve_ProjectManagerLosesProjectsOfInactiveOrganization(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	pm := testutil.CreateTestUser(t, db, models.RoleProjectManager)
	org := testutil.CreateTestOrg(t, db, "A", creator)
	project := testutil.CreateTestProject(t, db, org, creator, pm)
	testutil.CreateTestTask(t, db, project, creator, testutil.TaskOpts{})
	testutil.DeactivateOrg(t, db, org)

	scope, err := r.Resolve(ctx, actorOf(pm))
	require.NoError(t, err)
	assert.True(t, scope.IsEmpty())
}

func TestResolve_TeamMember(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	tm := testutil.CreateTestUser(t, db, models.RoleTeamMember)

	org := testutil.CreateTestOrg(t, db, "A", creator)
	memberProject := testutil.CreateTestProject(t, db, org, creator, nil)
	testutil.AddProjectMember(t, db, memberProject, tm, models.RoleTeamMember)
	otherProject := testutil.CreateTestProject(t, db, org, creator, nil)
	hiddenProject := testutil.CreateTestProject(t, db, org, creator, nil)

	inMember := testutil.CreateTestTask(t, db, memberProject, creator, testutil.TaskOpts{})
	assigned := testutil.CreateTestTask(t, db, otherProject, creator, testutil.TaskOpts{Assignee: tm})
	testutil.CreateTestTask(t, db, otherProject, creator, testutil.TaskOpts{})
	testutil.CreateTestTask(t, db, hiddenProject, creator, testutil.TaskOpts{})

	scope, err := r.Resolve(ctx, actorOf(tm))
	require.NoError(t, err)

	assert.Equal(t, []int64{org.ID}, scope.OrganizationIDs())
	assert.Equal(t, sorted(memberProject.ID, otherProject.ID), scope.ProjectIDs())
	assert.Equal(t, sorted(inMember.ID, assigned.ID), scope.TaskIDs())
}

func TestResolve_NoTaskWithoutItsProject(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	client := testutil.CreateTestUser(t, db, models.RoleClient)

	active := testutil.CreateTestOrg(t, db, "Active", creator)
	inactive := testutil.CreateTestOrg(t, db, "Inactive", creator)
	p1 := testutil.CreateTestProject(t, db, active, creator, nil)
	p2 := testutil.CreateTestProject(t, db, inactive, creator, nil)
	visible := testutil.CreateTestTask(t, db, p1, client, testutil.TaskOpts{})
	testutil.CreateTestTask(t, db, p2, client, testutil.TaskOpts{})
	testutil.DeactivateOrg(t, db, inactive)

	scope, err := r.Resolve(ctx, actorOf(client))
	require.NoError(t, err)

	assert.Equal(t, []int64{visible.ID}, scope.TaskIDs())
	for _, task := range scope.Tasks {
		assert.True(t, scope.HasProject(task.ProjectID))
	}
	for _, p := range scope.Projects {
		assert.True(t, scope.HasOrganization(p.OrganizationID))
	}
}

func TestResolve_EmptyScopes(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	testutil.CreateTestOrg(t, db, "Flow", creator)

	inactive := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	inactiveActor := actorOf(inactive)
	inactiveActor.IsActive = false

	roleless := testutil.CreateTestUser(t, db, "AUDITOR")

	tests := []struct {
		name  string
		actor Actor
	}{
		{"inactive actor", inactiveActor},
		{"unknown role", actorOf(roleless)},
		{"no roles", Actor{ID: 99, IsActive: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := r.Resolve(ctx, tt.actor)
			require.NoError(t, err)
			assert.True(t, scope.IsEmpty())
		})
	}
}

func TestResolve_DanglingMembershipSkipped(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	oa := testutil.CreateTestUser(t, db, models.RoleOrgAdmin)
	require.NoError(t, db.Create(&models.OrganizationMember{OrganizationID: 424242, UserID: oa.ID, Role: models.RoleOrgAdmin}).Error)

	scope, err := r.Resolve(ctx, actorOf(oa))
	require.NoError(t, err)
	assert.True(t, scope.IsEmpty())
}

func TestResolve_SortedAndDeterministic(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	creator := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	oa := testutil.CreateTestUser(t, db, models.RoleOrgAdmin)
	for i := 0; i < 4; i++ {
		org := testutil.CreateTestOrg(t, db, "Org", creator)
		testutil.AddOrgMember(t, db, org, oa, models.RoleOrgAdmin)
		testutil.CreateTestProject(t, db, org, creator, nil)
	}

	a, err := r.VisibleProjects(ctx, actorOf(oa))
	require.NoError(t, err)
	b, err := r.VisibleProjects(ctx, actorOf(oa))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.IsNonDecreasing(t, a)
}

func TestVisibleMembers(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	oa := testutil.CreateTestUser(t, db, models.RoleOrgAdmin)
	pm := testutil.CreateTestUser(t, db, models.RoleProjectManager)
	tm := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	stranger := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	gone := testutil.CreateTestUser(t, db, models.RoleTeamMember)

	org := testutil.CreateTestOrg(t, db, "Acme", sa)
	testutil.SetOrgAdmin(t, db, org, oa)
	testutil.AddOrgMember(t, db, org, oa, models.RoleOrgAdmin)
	testutil.AddOrgMember(t, db, org, pm, models.RoleProjectManager)
	testutil.AddOrgMember(t, db, org, tm, models.RoleTeamMember)
	testutil.AddOrgMember(t, db, org, stranger, models.RoleTeamMember)
	testutil.AddOrgMember(t, db, org, gone, models.MembershipDeleted)

	project := testutil.CreateTestProject(t, db, org, sa, pm)
	testutil.AddProjectMember(t, db, project, tm, models.RoleTeamMember)

	t.Run("super admin sees all live members", func(t *testing.T) {
		ids, err := r.VisibleMembers(ctx, actorOf(sa), org.ID)
		require.NoError(t, err)
		assert.Equal(t, sorted(oa.ID, pm.ID, tm.ID, stranger.ID), ids)
	})

	t.Run("org admin sees all members of its organization", func(t *testing.T) {
		ids, err := r.VisibleMembers(ctx, actorOf(oa), org.ID)
		require.NoError(t, err)
		assert.Equal(t, sorted(oa.ID, pm.ID, tm.ID, stranger.ID), ids)
	})

	t.Run("project manager sees its project colleagues", func(t *testing.T) {
		ids, err := r.VisibleMembers(ctx, actorOf(pm), org.ID)
		require.NoError(t, err)
		assert.Equal(t, sorted(pm.ID, tm.ID), ids)
	})

	t.Run("team member sees nobody", func(t *testing.T) {
		ids, err := r.VisibleMembers(ctx, actorOf(tm), org.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestVisibleMembers_ProjectManagerWithoutProjects(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := testutil.TestContext(t)

	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	pm := testutil.CreateTestUser(t, db, models.RoleProjectManager)
	other := testutil.CreateTestUser(t, db, models.RoleTeamMember)

	member := testutil.CreateTestOrg(t, db, "Member", sa)
	testutil.AddOrgMember(t, db, member, pm, models.RoleProjectManager)
	testutil.AddOrgMember(t, db, member, other, models.RoleTeamMember)
	outsider := testutil.CreateTestOrg(t, db, "Outsider", sa)
	testutil.AddOrgMember(t, db, outsider, other, models.RoleTeamMember)

	ids, err := r.VisibleMembers(ctx, actorOf(pm), member.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{pm.ID}, ids)

	ids, err = r.VisibleMembers(ctx, actorOf(pm), outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

type failingStore struct {
	Store
}

func (failingStore) ProjectsByManager(context.Context, int64) ([]models.Project, error) {
	return nil, errors.New("connection reset")
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	_, db := newTestResolver(t)
	r := NewResolver(failingStore{Store: store.New(db)}, "Flow", util.DiscardLogger())

	pm := testutil.CreateTestUser(t, db, models.RoleProjectManager)
	_, err := r.Resolve(testutil.TestContext(t), actorOf(pm))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func sorted(ids ...int64) []int64 {
	s := make(idSet)
	s.addAll(ids)
	return s.sorted()
}
