package controller

import (
	"cmp"
	"slices"

	"github.com/zjrosen/smartnotes/internal/instance"
)

// Status is the derived run state of an instance.
type Status string

const (
	StatusStopped Status = "Stopped"
	StatusRunning Status = "Running"
)

// View is an instance plus the state derived from the other stores. Views
// are recomputed on every refresh and never stored.
type View struct {
	instance.Instance
	Running   bool
	PID       int
	AutoStart bool
	// Orphan is set for auto-start entries whose metadata file is missing.
	Orphan bool
}

// Status returns Running or Stopped.
func (v View) Status() Status {
	if v.Running {
		return StatusRunning
	}
	return StatusStopped
}

// AutoStartLabel returns "On" or "Off".
func (v View) AutoStartLabel() string {
	if v.AutoStart {
		return "On"
	}
	return "Off"
}

// Stats are the status bar counters.
type Stats struct {
	Total     int
	Running   int
	AutoStart int
}

func sortViews(views []View) {
	slices.SortFunc(views, func(a, b View) int {
		return cmp.Or(
			a.CreatedDate.Compare(b.CreatedDate.Time),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
}
