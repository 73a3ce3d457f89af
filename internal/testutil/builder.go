// Package testutil builds data-directory fixtures: metadata files, widget
// files, auto-start entries and the legacy registry, written the way the
// widget and older managers write them.
package testutil

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/paths"
)

// Builder accumulates fixtures and writes them in the correct order.
type Builder struct {
	t         *testing.T
	layout    paths.Layout
	instances []instanceData
	orphans   []instance.AutoStartEntry
	legacy    map[string]legacyEntry
	corrupt   []string
}

type legacyEntry struct {
	instance.Instance
	AutoStart bool `json:"auto_start"`
}

// NewBuilder creates a builder for dir.
func NewBuilder(t *testing.T, dir string) *Builder {
	t.Helper()
	return &Builder{t: t, layout: paths.New(dir), legacy: make(map[string]legacyEntry)}
}

// WithInstance adds an instance with a metadata file.
func (b *Builder) WithInstance(id string, opts ...InstanceOption) *Builder {
	data := defaultInstance(id)
	for _, opt := range opts {
		opt(&data)
	}
	b.instances = append(b.instances, data)
	return b
}

// WithOrphanAutoStart adds an auto-start entry whose metadata file does
// not exist.
func (b *Builder) WithOrphanAutoStart(id, name string, enabledAt time.Time) *Builder {
	inst := instance.New(id, name, instance.ThemeDark, enabledAt)
	b.orphans = append(b.orphans, instance.AutoStartEntry{Instance: inst, AutoStartEnabled: instance.At(enabledAt)})
	return b
}

// WithLegacyEntry adds an entry to the deprecated instance registry.
func (b *Builder) WithLegacyEntry(id, name string, autoStart bool) *Builder {
	inst := instance.New(id, name, instance.ThemeDark, defaultTime)
	b.legacy[id] = legacyEntry{Instance: inst, AutoStart: autoStart}
	return b
}

// WithCorruptMetadata adds a metadata file that is not valid JSON.
func (b *Builder) WithCorruptMetadata(id string) *Builder {
	b.corrupt = append(b.corrupt, id)
	return b
}

// Build writes everything and returns the layout of the directory.
func (b *Builder) Build() paths.Layout {
	b.t.Helper()
	entries := make(map[string]instance.AutoStartEntry)
	for _, d := range b.instances {
		b.writeJSON(b.layout.Metadata(d.inst.ID), d.inst)
		if d.notes != nil {
			b.write(b.layout.Role(d.inst.ID, paths.RoleNotes), []byte(*d.notes))
		}
		if d.widgetFiles {
			for _, role := range paths.Roles {
				if role != paths.RoleNotes {
					b.write(b.layout.Role(d.inst.ID, role), []byte("{}"))
				}
			}
		}
		if d.autoStartAt != nil {
			entries[d.inst.ID] = instance.AutoStartEntry{Instance: d.inst, AutoStartEnabled: instance.At(*d.autoStartAt)}
		}
	}
	for _, e := range b.orphans {
		entries[e.ID] = e
	}
	if len(entries) > 0 {
		b.writeJSON(b.layout.AutoStart(), entries)
	}
	if len(b.legacy) > 0 {
		b.writeJSON(b.layout.LegacyRegistry(), b.legacy)
	}
	for _, id := range b.corrupt {
		b.write(b.layout.Metadata(id), []byte("{not json"))
	}
	return b.layout
}

func (b *Builder) writeJSON(path string, v any) {
	b.t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(b.t, err)
	b.write(path, data)
}

func (b *Builder) write(path string, data []byte) {
	b.t.Helper()
	require.NoError(b.t, os.WriteFile(path, data, 0o600))
}
