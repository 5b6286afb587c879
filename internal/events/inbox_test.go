package events

import (
	"testing"

	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := store.New(db)
	inbox := NewInbox(s)

	alice := testutil.CreateTestUser(t, db, models.RoleTeamMember)
	bob := testutil.CreateTestUser(t, db, models.RoleTeamMember)

	var aliceIDs []int64
	for i := 0; i < 3; i++ {
		n := &models.NotificationEvent{UserID: alice.ID, Type: models.EventTaskAssigned, Title: "t"}
		require.NoError(t, s.CreateNotification(ctx, n))
		aliceIDs = append(aliceIDs, n.ID)
	}
	bobs := &models.NotificationEvent{UserID: bob.ID, Type: models.EventTaskAssigned, Title: "t"}
	require.NoError(t, s.CreateNotification(ctx, bobs))

	list, err := inbox.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, inbox.MarkRead(ctx, alice.ID, aliceIDs[0]))
	require.NoError(t, inbox.MarkRead(ctx, alice.ID, aliceIDs[0]))

	count, err := inbox.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	unread, err := inbox.Unread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	err = inbox.MarkRead(ctx, alice.ID, bobs.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := inbox.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err = inbox.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
