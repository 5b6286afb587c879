package projects

import (
	"testing"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembers_IncludesManager(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	o := newOrg(t, db)
	tm := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	p := testutil.CreateTestProject(t, db, o.org, o.oa, o.pm)
	testutil.AddProjectMember(t, db, p, tm, models.RoleTeamMember)

	members, err := f.svc.Members(ctx, access.ActorFromUser(tm), p.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	roles := map[int64]string{}
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	assert.Equal(t, models.RoleProjectManager, roles[o.pm.ID])
	assert.Equal(t, models.RoleTeamMember, roles[tm.ID])

	client := testutil.CreateTestUser(t, db, models.RoleClient)
	testutil.AddProjectMember(t, db, p, client, models.RoleClient)
	_, err = f.svc.Members(ctx, access.ActorFromUser(client), p.ID)
	assert.ErrorIs(t, err, access.ErrAccessDenied)
}

func TestAddMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{MaxMembersPerProject: 1})
	ctx := testutil.TestContext(t)
	o := newOrg(t, db)
	p := testutil.CreateTestProject(t, db, o.org, o.oa, o.pm)
	first := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	second := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	actor := access.ActorFromUser(o.pm)

	m, err := f.svc.AddMember(ctx, actor, p.ID, first.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeamMember, m.Role)

	again, err := f.svc.AddMember(ctx, actor, p.ID, first.ID, models.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, models.RoleTeamMember, again.Role)
	assert.Len(t, f.inbox(t, first.ID), 1, "re-adding does not notify again")

	_, err = f.svc.AddMember(ctx, actor, p.ID, second.ID, "")
	assert.ErrorIs(t, err, settings.ErrLimitExceeded)

	_, err = f.svc.AddMember(ctx, actor, p.ID, second.ID, models.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.AddMember(ctx, actor, p.ID, 424242, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.AddMember(ctx, access.ActorFromUser(first), p.ID, second.ID, "")
	assert.ErrorIs(t, err, access.ErrAccessDenied)
}

func TestFeedback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	o := newOrg(t, db)
	client := testutil.CreateTestUser(t, db, models.RoleClient)
	p := testutil.CreateTestProject(t, db, o.org, o.oa, o.pm)
	testutil.AddProjectMember(t, db, p, client, models.RoleClient)

	n, err := f.svc.Feedback(ctx, access.ActorFromUser(client), p.ID, "Looks great")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, o.pm.ID, n.UserID)
	assert.Equal(t, models.EventClientFeedback, n.Type)
	assert.Contains(t, n.Message, "Looks great")

	_, err = f.svc.Feedback(ctx, access.ActorFromUser(client), p.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Feedback(ctx, access.ActorFromUser(o.pm), p.ID, "hi")
	assert.ErrorIs(t, err, access.ErrAccessDenied)

	unmanaged := testutil.CreateTestProject(t, db, o.org, o.oa, nil)
	testutil.AddProjectMember(t, db, unmanaged, client, models.RoleClient)
	n, err = f.svc.Feedback(ctx, access.ActorFromUser(client), unmanaged.ID, "anyone?")
	require.NoError(t, err)
	assert.Nil(t, n)
}
