// Package paths derives the on-disk names of every smartnotes file.
//
// All files live flat in one data directory (the user's home by default):
//
//	.smart_notes_{id}_metadata.json
//	.smart_notes_{id}_settings.json
//	.smart_notes_{id}_notes.txt
//	.smart_notes_{id}_position.json
//	.smart_notes_{id}_mini_position.json
//	.smart_notes_auto_start.json
//	.smart_notes_instance_registry.json   (deprecated, import only)
package paths

import (
	"path/filepath"
	"strings"
)

const (
	filePrefix       = ".smart_notes_"
	metadataSuffix   = "_metadata.json"
	autoStartFile    = ".smart_notes_auto_start.json"
	legacyRegistry   = ".smart_notes_instance_registry.json"
	homeDisplayRoot  = "~"
	debugLogFileName = ".smart_notes_debug.log"
)

// Role names one of the per-instance widget files.
type Role string

const (
	RoleSettings     Role = "settings"
	RoleNotes        Role = "notes"
	RolePosition     Role = "position"
	RoleMiniPosition Role = "mini_position"
)

// Roles lists the widget-owned roles in a stable order.
var Roles = []Role{RoleSettings, RoleNotes, RolePosition, RoleMiniPosition}

// Ext returns the file extension for a role.
func (r Role) Ext() string {
	if r == RoleNotes {
		return "txt"
	}
	return "json"
}

// Layout resolves file names inside one data directory.
type Layout struct {
	Dir string
}

// New returns a Layout rooted at dir.
func New(dir string) Layout {
	return Layout{Dir: dir}
}

// RoleFileName is the bare file name for an instance role.
func RoleFileName(id string, role Role) string {
	return filePrefix + id + "_" + string(role) + "." + role.Ext()
}

// MetadataFileName is the bare metadata file name for an instance.
func MetadataFileName(id string) string {
	return filePrefix + id + metadataSuffix
}

// DisplayPath is the home-relative form stored inside metadata files,
// e.g. ~/.smart_notes_{id}_notes.txt.
func DisplayPath(id string, role Role) string {
	return homeDisplayRoot + "/" + RoleFileName(id, role)
}

// Role returns the absolute path of an instance role file.
func (l Layout) Role(id string, role Role) string {
	return filepath.Join(l.Dir, RoleFileName(id, role))
}

// Metadata returns the absolute path of an instance metadata file.
func (l Layout) Metadata(id string) string {
	return filepath.Join(l.Dir, MetadataFileName(id))
}

// InstanceFiles returns all five files owned by an instance, metadata first.
func (l Layout) InstanceFiles(id string) []string {
	files := []string{l.Metadata(id)}
	for _, r := range Roles {
		files = append(files, l.Role(id, r))
	}
	return files
}

// AutoStart returns the auto-start registry path.
func (l Layout) AutoStart() string {
	return filepath.Join(l.Dir, autoStartFile)
}

// LegacyRegistry returns the deprecated instance registry path.
func (l Layout) LegacyRegistry() string {
	return filepath.Join(l.Dir, legacyRegistry)
}

// DebugLog returns the debug log path.
func (l Layout) DebugLog() string {
	return filepath.Join(l.Dir, debugLogFileName)
}

// IDFromMetadataName extracts the instance id from a metadata file name.
// ok is false for names that do not follow the convention.
func IDFromMetadataName(name string) (id string, ok bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, metadataSuffix) {
		return "", false
	}
	id = strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), metadataSuffix)
	if id == "" {
		return "", false
	}
	return id, true
}

// IsMetadataName reports whether name looks like an instance metadata file.
func IsMetadataName(name string) bool {
	_, ok := IDFromMetadataName(name)
	return ok
}

// IsTracked reports whether name is a file the manager cares about when
// watching the data directory: metadata files and the auto-start registry.
func IsTracked(name string) bool {
	return IsMetadataName(name) || name == autoStartFile
}
