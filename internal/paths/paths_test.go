package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleFileNames(t *testing.T) {
	id := "0f8fad5b-d9cb-469f-a165-70867728950e"
	require.Equal(t, ".smart_notes_"+id+"_settings.json", RoleFileName(id, RoleSettings))
	require.Equal(t, ".smart_notes_"+id+"_notes.txt", RoleFileName(id, RoleNotes))
	require.Equal(t, ".smart_notes_"+id+"_position.json", RoleFileName(id, RolePosition))
	require.Equal(t, ".smart_notes_"+id+"_mini_position.json", RoleFileName(id, RoleMiniPosition))
	require.Equal(t, "~/.smart_notes_"+id+"_notes.txt", DisplayPath(id, RoleNotes))
}

func TestLayout(t *testing.T) {
	l := New("/data")
	files := l.InstanceFiles("abc")
	require.Len(t, files, 5)
	require.Equal(t, filepath.Join("/data", ".smart_notes_abc_metadata.json"), files[0])
	require.Equal(t, filepath.Join("/data", ".smart_notes_auto_start.json"), l.AutoStart())
	require.Equal(t, filepath.Join("/data", ".smart_notes_instance_registry.json"), l.LegacyRegistry())
}

func TestIDFromMetadataName(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{".smart_notes_abc_metadata.json", "abc", true},
		{".smart_notes__metadata.json", "", false},
		{".smart_notes_abc_settings.json", "", false},
		{".smart_notes_auto_start.json", "", false},
		{"notes_abc_metadata.json", "", false},
	}
	for _, tt := range tests {
		id, ok := IDFromMetadataName(tt.name)
		require.Equal(t, tt.ok, ok, tt.name)
		require.Equal(t, tt.id, id, tt.name)
	}
	require.True(t, IsTracked(".smart_notes_auto_start.json"))
	require.False(t, IsTracked(".smart_notes_abc_notes.txt"))
}
