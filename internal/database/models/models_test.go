package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_ScanValue(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan(`["ORG_ADMIN","CLIENT"]`))
	assert.Equal(t, StringList{"ORG_ADMIN", "CLIENT"}, l)

	require.NoError(t, l.Scan([]byte(`[]`)))
	assert.Empty(t, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.Error(t, l.Scan(42))

	v, err := StringList{"A"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["A"]`, v)

	v, err = StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestNewID_Unique(t *testing.T) {
	require.NoError(t, SetNode(7))
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Error(t, SetNode(5000))
}

func TestTask_LastTouched(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{Base: Base{CreatedAt: created}}
	assert.Equal(t, created, task.LastTouched())

	task.UpdatedAt = created.Add(time.Hour)
	assert.Equal(t, created.Add(time.Hour), task.LastTouched())
}

func TestUser_HasRole(t *testing.T) {
	u := User{FirstName: "Ada", LastName: "Lovelace", Roles: StringList{RoleProjectManager}}
	assert.True(t, u.HasRole(RoleProjectManager))
	assert.False(t, u.HasRole(RoleClient))
	assert.Equal(t, "Ada Lovelace", u.FullName())
}
