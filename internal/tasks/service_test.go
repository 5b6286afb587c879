package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/status"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/testutil"
	"github.com/hugh/flow/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type fixture struct {
	svc   *Service
	store *store.Store
	box   *outbox
}

func newFixture(t *testing.T, db *gorm.DB, limits settings.Limits) fixture {
	t.Helper()
	s := store.New(db)
	logger := util.DiscardLogger()
	resolver := access.NewResolver(s, "Flow", logger)
	policy, err := access.NewPolicy(resolver, logger)
	require.NoError(t, err)
	box := &outbox{}
	router := events.NewRouter(s, nil, logger, nil)
	return fixture{
		svc:   NewService(s, policy, resolver, settings.NewService(s, limits), router, box, logger),
		store: s,
		box:   box,
	}
}

func (f fixture) inbox(t *testing.T, userID int64) []models.NotificationEvent {
	t.Helper()
	list, err := f.store.NotificationsByUser(context.Background(), userID, false, 0)
	require.NoError(t, err)
	return list
}

func ptr[T any](v T) *T { return &v }

// world is an organization with a managed project, one team member on it
// and one user who is not.
type world struct {
	org      *models.Organization
	project  *models.Project
	pm, tm   *models.User
	newcomer *models.User
}

func newWorld(t *testing.T, db *gorm.DB) world {
	t.Helper()
	sa := testutil.CreateTestUser(t, db, models.RoleSuperAdmin)
	pm := testutil.CreateTestUser(t, db, models.RoleProjectManager)
	tm := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	newcomer := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	org := testutil.CreateTestOrg(t, db, "Acme", sa)
	project := testutil.CreateTestProject(t, db, org, sa, pm)
	testutil.AddProjectMember(t, db, project, tm, models.RoleTeamMember)
	return world{org: org, project: project, pm: pm, tm: tm, newcomer: newcomer}
}

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)

	task, err := f.svc.Create(ctx, access.ActorFromUser(w.pm), w.project.ID, CreateInput{Title: " Write docs "})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", task.Title)
	assert.Equal(t, status.Todo, task.Status)
	assert.Equal(t, status.Medium, task.Priority)
	assert.Equal(t, w.pm.ID, task.CreatedByID)

	task, err = f.svc.Create(ctx, access.ActorFromUser(w.tm), w.project.ID, CreateInput{
		Title:    "Ship",
		Status:   "In-Progress",
		Priority: "HIGH",
	})
	require.NoError(t, err)
	assert.Equal(t, status.InProgress, task.Status)
	assert.Equal(t, status.High, task.Priority)

	_, err = f.svc.Create(ctx, access.ActorFromUser(w.pm), w.project.ID, CreateInput{Title: "x", Status: "someday"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Create(ctx, access.ActorFromUser(w.pm), w.project.ID, CreateInput{Title: "x", Priority: "meh"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Create(ctx, access.ActorFromUser(w.pm), w.project.ID, CreateInput{Title: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreate_AssigneeJoinsProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)

	task, err := f.svc.Create(ctx, access.ActorFromUser(w.pm), w.project.ID, CreateInput{
		Title:      "Onboard",
		AssigneeID: &w.newcomer.ID,
	})
	require.NoError(t, err)
	assert.True(t, task.AssignedTo(w.newcomer.ID))

	m, err := f.store.GetProjectMembership(ctx, w.project.ID, w.newcomer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeamMember, m.Role)
	assert.Equal(t, 1, f.box.count())

	notes := f.inbox(t, w.newcomer.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.EventTaskAssigned, notes[0].Type)
	assert.Equal(t, task.ID, notes[0].RelatedEntityID)
}

func TestCreate_SelfAssignedIsSilent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)

	_, err := f.svc.Create(ctx, access.ActorFromUser(w.tm), w.project.ID, CreateInput{Title: "Mine", AssigneeID: &w.tm.ID})
	require.NoError(t, err)
	assert.Empty(t, f.inbox(t, w.tm.ID))
	assert.Zero(t, f.box.count())
}

func TestCreate_Limits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{MaxTasksPerProject: 1})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	actor := access.ActorFromUser(w.pm)

	_, err := f.svc.Create(ctx, actor, w.project.ID, CreateInput{Title: "one"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, actor, w.project.ID, CreateInput{Title: "two"})
	assert.ErrorIs(t, err, settings.ErrLimitExceeded)
}

func TestCreate_Denied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)

	client := testutil.CreateTestUser(t, db, models.RoleClient)
	testutil.AddProjectMember(t, db, w.project, client, models.RoleClient)
	_, err := f.svc.Create(ctx, access.ActorFromUser(client), w.project.ID, CreateInput{Title: "x"})
	assert.ErrorIs(t, err, access.ErrAccessDenied)

	_, err = f.svc.Create(ctx, access.ActorFromUser(w.newcomer), w.project.ID, CreateInput{Title: "x"})
	assert.ErrorIs(t, err, access.ErrAccessDenied)
}

func TestListByProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)

	first := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{})
	second := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{})
	other := testutil.CreateTestProject(t, db, w.org, w.pm, w.pm)
	testutil.CreateTestTask(t, db, other, w.pm, testutil.TaskOpts{})

	list, err := f.svc.ListByProject(ctx, access.ActorFromUser(w.pm), w.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []int64{first.ID, second.ID}, []int64{list[0].ID, list[1].ID})

	_, err = f.svc.ListByProject(ctx, access.ActorFromUser(w.newcomer), w.project.ID)
	assert.ErrorIs(t, err, access.ErrAccessDenied)
}

func TestUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	task := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{})

	got, err := f.svc.Update(ctx, access.ActorFromUser(w.tm), task.ID, UpdateInput{
		Title:    ptr("Renamed"),
		Priority: ptr("Urgent"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, status.Urgent, got.Priority)

	_, err = f.svc.Update(ctx, access.ActorFromUser(w.tm), task.ID, UpdateInput{Priority: ptr("whenever")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus_CompletionNotifiesManager(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	task := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{Assignee: w.tm})
	actor := access.ActorFromUser(w.tm)

	got, err := f.svc.UpdateStatus(ctx, actor, task.ID, "in-progress")
	require.NoError(t, err)
	assert.Equal(t, status.InProgress, got.Status)
	assert.Empty(t, f.inbox(t, w.pm.ID))

	got, err = f.svc.UpdateStatus(ctx, actor, task.ID, "Completed")
	require.NoError(t, err)
	assert.Equal(t, status.Done, got.Status)

	notes := f.inbox(t, w.pm.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.EventTaskCompleted, notes[0].Type)

	_, err = f.svc.UpdateStatus(ctx, actor, task.ID, "done")
	require.NoError(t, err)
	assert.Len(t, f.inbox(t, w.pm.ID), 1, "done to done is not a completion")

	got, err = f.svc.UpdateStatus(ctx, actor, task.ID, "todo")
	require.NoError(t, err)
	assert.Equal(t, status.Todo, got.Status)
	assert.Len(t, f.inbox(t, w.pm.ID), 1, "reopening is not a completion")

	_, err = f.svc.UpdateStatus(ctx, actor, task.ID, "done")
	require.NoError(t, err)
	assert.Len(t, f.inbox(t, w.pm.ID), 2, "a fresh not-done to done edge fires again")

	_, err = f.svc.UpdateStatus(ctx, actor, task.ID, "lost")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus_RequiresStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	task := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{Assignee: w.tm})
	actor := access.ActorFromUser(w.tm)

	_, err := f.svc.UpdateStatus(ctx, actor, task.ID, "in_progress")
	require.NoError(t, err)

	for _, blank := range []string{"", "   "} {
		_, err = f.svc.UpdateStatus(ctx, actor, task.ID, blank)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	stored, err := store.New(db).GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.InProgress, stored.Status)

	empty := ""
	_, err = f.svc.Update(ctx, actor, task.ID, UpdateInput{Priority: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssign(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	task := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{})
	actor := access.ActorFromUser(w.pm)

	_, err := f.svc.Assign(ctx, access.ActorFromUser(w.tm), task.ID, &w.tm.ID)
	assert.ErrorIs(t, err, access.ErrAccessDenied)

	got, err := f.svc.Assign(ctx, actor, task.ID, &w.tm.ID)
	require.NoError(t, err)
	assert.True(t, got.AssignedTo(w.tm.ID))
	assert.Len(t, f.inbox(t, w.tm.ID), 1)
	assert.Zero(t, f.box.count(), "existing member gets no project mail")

	_, err = f.svc.Assign(ctx, actor, task.ID, &w.tm.ID)
	require.NoError(t, err)
	assert.Len(t, f.inbox(t, w.tm.ID), 1, "reassigning the same user is silent")

	got, err = f.svc.Assign(ctx, actor, task.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedToID)

	_, err = f.svc.Assign(ctx, actor, task.ID, ptr(int64(424242)))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssign_MemberLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{MaxMembersPerProject: 1})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	task := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{})

	_, err := f.svc.Assign(ctx, access.ActorFromUser(w.pm), task.ID, &w.newcomer.ID)
	assert.ErrorIs(t, err, settings.ErrLimitExceeded)

	reloaded, err := f.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.AssignedToID)
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	task := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{})

	assert.ErrorIs(t, f.svc.Delete(ctx, access.ActorFromUser(w.tm), task.ID), access.ErrAccessDenied)
	require.NoError(t, f.svc.Delete(ctx, access.ActorFromUser(w.pm), task.ID))

	_, err := f.store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestComment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := newFixture(t, db, settings.Limits{})
	ctx := testutil.TestContext(t)
	w := newWorld(t, db)
	task := testutil.CreateTestTask(t, db, w.project, w.pm, testutil.TaskOpts{Assignee: w.tm})

	c, err := f.svc.Comment(ctx, access.ActorFromUser(w.pm), task.ID, " please review ")
	require.NoError(t, err)
	assert.Equal(t, "please review", c.Body)
	assert.Equal(t, w.pm.ID, c.AuthorID)

	notes := f.inbox(t, w.tm.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.EventTaskComment, notes[0].Type)

	_, err = f.svc.Comment(ctx, access.ActorFromUser(w.tm), task.ID, "done")
	require.NoError(t, err)
	assert.Len(t, f.inbox(t, w.tm.ID), 1, "assignee is not notified of their own comment")

	_, err = f.svc.Comment(ctx, access.ActorFromUser(w.tm), task.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, err := f.svc.Comments(ctx, access.ActorFromUser(w.tm), task.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
