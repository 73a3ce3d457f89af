// Package instance defines the records shared by every store: the Instance
// descriptor kept in per-instance metadata files and the AutoStartEntry kept
// in the auto-start registry. Defaults are applied once, when a record is
// decoded, so readers never need fallbacks.
package instance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/zjrosen/smartnotes/internal/paths"
)

// Theme identifies a widget colour scheme. The colour tables themselves live
// in the widget.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Valid reports whether the theme is one the widget knows.
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// CopySuffix is appended to the name of a cloned instance.
const CopySuffix = " (Copy)"

// Files maps each widget role to its home-relative path.
type Files struct {
	Settings     string `json:"settings"`
	Notes        string `json:"notes"`
	Position     string `json:"position"`
	MiniPosition string `json:"mini_position"`
}

// FilesFor derives the file map from an instance id.
func FilesFor(id string) Files {
	return Files{
		Settings:     paths.DisplayPath(id, paths.RoleSettings),
		Notes:        paths.DisplayPath(id, paths.RoleNotes),
		Position:     paths.DisplayPath(id, paths.RolePosition),
		MiniPosition: paths.DisplayPath(id, paths.RoleMiniPosition),
	}
}

// Instance is one independently configured copy of the widget.
type Instance struct {
	ID           string    `json:"instance_id"`
	Name         string    `json:"name"`
	CreatedDate  Timestamp `json:"created_date"`
	LastModified Timestamp `json:"last_modified"`
	Theme        Theme     `json:"theme"`
	Files        Files     `json:"files"`
}

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// DefaultName is the label given to the n-th created instance.
func DefaultName(n int) string {
	return fmt.Sprintf("New Instance %d", n)
}

// New builds a fresh instance record.
func New(id, name string, theme Theme, now time.Time) Instance {
	inst := Instance{
		ID:           id,
		Name:         name,
		CreatedDate:  At(now),
		LastModified: At(now),
		Theme:        theme,
		Files:        FilesFor(id),
	}
	inst.Normalize()
	return inst
}

// CloneAs copies inst under a new id with CopySuffix appended to the name.
// Both timestamps restart at now.
func (inst Instance) CloneAs(id string, now time.Time) Instance {
	return New(id, inst.Name+CopySuffix, inst.Theme, now)
}

// Renamed returns inst with a new trimmed name and a bumped LastModified.
func (inst Instance) Renamed(name string, now time.Time) Instance {
	inst.Name = strings.TrimSpace(name)
	inst.LastModified = At(now)
	return inst
}

// Normalize applies defaults and re-derives Files from ID. It reports
// whether anything had to change.
func (inst *Instance) Normalize() bool {
	changed := false
	if !inst.Theme.Valid() {
		inst.Theme = ThemeDark
		changed = true
	}
	if inst.LastModified.IsZero() && !inst.CreatedDate.IsZero() {
		inst.LastModified = inst.CreatedDate
		changed = true
	}
	if derived := FilesFor(inst.ID); inst.Files != derived {
		inst.Files = derived
		changed = true
	}
	if inst.Name == "" {
		inst.Name = "Unnamed " + ShortID(inst.ID)
		changed = true
	}
	return changed
}

// Validate checks the id, the one field that cannot be defaulted.
func (inst Instance) Validate() error {
	return validation.ValidateStruct(&inst,
		validation.Field(&inst.ID, validation.Required, validation.By(validID)),
	)
}

func validID(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return fmt.Errorf("must not contain path separators")
	}
	return nil
}

// Decode parses a metadata document and normalizes it.
func Decode(data []byte) (Instance, error) {
	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return Instance{}, err
	}
	if err := inst.Validate(); err != nil {
		return Instance{}, err
	}
	inst.Normalize()
	return inst, nil
}

// ShortID is the first eight characters of an id, used for display and for
// startup hook entry names.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// AutoStartEntry is an auto-start registry record: a snapshot of the
// instance metadata plus the time auto-start was first enabled. It is a copy,
// not a reference, and may outlive the metadata file it was taken from.
type AutoStartEntry struct {
	Instance
	AutoStartEnabled Timestamp `json:"auto_start_enabled"`
}
