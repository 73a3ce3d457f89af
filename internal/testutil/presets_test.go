package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/smartnotes/internal/autostart"
	"github.com/zjrosen/smartnotes/internal/paths"
	"github.com/zjrosen/smartnotes/internal/store"
)

func TestWithStandardData(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	layout := NewBuilder(t, dir).WithStandardData(now).Build()

	res := store.New(dir).Scan()
	require.NoError(t, res.Err)
	require.Len(t, res.Instances, 2)
	require.Equal(t, "Groceries", res.Instances[GroceriesID].Name)
	require.Equal(t, "Work", res.Instances[WorkID].Name)
	require.NotContains(t, res.Instances, OrphanID)

	for _, role := range paths.Roles {
		require.FileExists(t, layout.Role(GroceriesID, role))
	}
	require.NoFileExists(t, layout.Role(WorkID, paths.RoleNotes))

	reg := autostart.Open(layout.AutoStart())
	require.True(t, reg.IsEnabled(GroceriesID))
	require.True(t, reg.IsEnabled(OrphanID))
	require.False(t, reg.IsEnabled(WorkID))
	entry, ok := reg.Get(OrphanID)
	require.True(t, ok)
	require.Equal(t, "Gone", entry.Name)
}
