package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/paths"
	"github.com/zjrosen/smartnotes/internal/store"
)

func TestBuilder_WithInstance(t *testing.T) {
	dir := t.TempDir()
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	NewBuilder(t, dir).
		WithInstance("inst-1", Name("Shopping"), Theme(instance.ThemeLight), CreatedAt(created), Notes("bread")).
		Build()

	res := store.New(dir).Scan()
	require.NoError(t, res.Err)
	require.Empty(t, res.Skipped)
	got := res.Instances["inst-1"]
	require.Equal(t, "Shopping", got.Name)
	require.Equal(t, instance.ThemeLight, got.Theme)
	require.True(t, got.CreatedDate.Equal(created))

	notes, err := os.ReadFile(paths.New(dir).Role("inst-1", paths.RoleNotes))
	require.NoError(t, err)
	require.Equal(t, "bread", string(notes))
}

func TestBuilder_DefaultsNameToID(t *testing.T) {
	dir := t.TempDir()
	NewBuilder(t, dir).WithInstance("plain").Build()

	res := store.New(dir).Scan()
	require.Equal(t, "plain", res.Instances["plain"].Name)
	require.NoFileExists(t, paths.New(dir).Role("plain", paths.RoleNotes))
}

func TestBuilder_CorruptMetadataIsSkipped(t *testing.T) {
	dir := t.TempDir()
	NewBuilder(t, dir).WithInstance("good").WithCorruptMetadata("bad").Build()

	res := store.New(dir).Scan()
	require.Len(t, res.Instances, 1)
	require.Len(t, res.Skipped, 1)
}

func TestBuilder_LegacyRegistry(t *testing.T) {
	dir := t.TempDir()
	layout := NewBuilder(t, dir).WithLegacyEntry("old-1", "Old", true).Build()

	data, err := os.ReadFile(layout.LegacyRegistry())
	require.NoError(t, err)
	require.Contains(t, string(data), `"auto_start": true`)
	require.Contains(t, string(data), `"name": "Old"`)
}

func TestBuilder_NoRegistryWithoutEntries(t *testing.T) {
	dir := t.TempDir()
	layout := NewBuilder(t, dir).WithInstance("x").Build()
	require.NoFileExists(t, layout.AutoStart())
	require.NoFileExists(t, layout.LegacyRegistry())
}
