package history

import (
	"time"
)

// Launch is one journal row.
type Launch struct {
	ID         int64
	InstanceID string
	PID        int
	StartedAt  time.Time
	ExitedAt   *time.Time
	ExitError  string
}

// Running reports whether no exit was recorded.
func (l Launch) Running() bool {
	return l.ExitedAt == nil
}

// Duration is the run time, or zero while running.
func (l Launch) Duration() time.Duration {
	if l.ExitedAt == nil {
		return 0
	}
	return l.ExitedAt.Sub(l.StartedAt)
}

// launchModel maps the launches table. Times are Unix milliseconds.
type launchModel struct {
	ID         int64
	InstanceID string
	PID        int64
	StartedAt  int64
	ExitedAt   *int64  // nullable
	ExitError  *string // nullable
}

func (m *launchModel) toLaunch() Launch {
	l := Launch{
		ID:         m.ID,
		InstanceID: m.InstanceID,
		PID:        int(m.PID),
		StartedAt:  time.UnixMilli(m.StartedAt),
	}
	if m.ExitedAt != nil {
		t := time.UnixMilli(*m.ExitedAt)
		l.ExitedAt = &t
	}
	if m.ExitError != nil {
		l.ExitError = *m.ExitError
	}
	return l
}
