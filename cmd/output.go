package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zjrosen/smartnotes/internal/controller"
	"github.com/zjrosen/smartnotes/internal/history"
	"github.com/zjrosen/smartnotes/internal/instance"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable writes rows as a bordered table. Styles only pad, so the
// output stays plain when piped.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// instanceJSON is the --json shape of one instance.
type instanceJSON struct {
	ID           string             `json:"instance_id"`
	Name         string             `json:"name"`
	Theme        string             `json:"theme"`
	CreatedDate  instance.Timestamp `json:"created_date"`
	LastModified instance.Timestamp `json:"last_modified"`
	AutoStart    bool               `json:"auto_start"`
	Running      bool               `json:"running"`
	PID          int                `json:"pid,omitempty"`
	Orphan       bool               `json:"missing_metadata,omitempty"`
	LastLaunch   *launchRef         `json:"last_launch,omitempty"`
}

type launchRef struct {
	PID       int        `json:"pid"`
	StartedAt time.Time  `json:"started_at"`
	ExitedAt  *time.Time `json:"exited_at,omitempty"`
	ExitError string     `json:"exit_error,omitempty"`
}

func toLaunchRef(l history.Launch) *launchRef {
	return &launchRef{PID: l.PID, StartedAt: l.StartedAt, ExitedAt: l.ExitedAt, ExitError: l.ExitError}
}

func toJSON(v controller.View, last *history.Launch) instanceJSON {
	out := instanceJSON{
		ID:           v.ID,
		Name:         v.Name,
		Theme:        string(v.Theme),
		CreatedDate:  v.CreatedDate,
		LastModified: v.LastModified,
		AutoStart:    v.AutoStart,
		Running:      v.Running,
		PID:          v.PID,
		Orphan:       v.Orphan,
	}
	if last != nil {
		out.LastLaunch = toLaunchRef(*last)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeLaunch is the one-line summary of a journal row.
func describeLaunch(l history.Launch) string {
	switch {
	case l.Running():
		return fmt.Sprintf("%s (pid %d)", l.StartedAt.Format("2006-01-02 15:04"), l.PID)
	case l.ExitError != "":
		return fmt.Sprintf("%s, exited: %s", l.StartedAt.Format("2006-01-02 15:04"), firstLine(l.ExitError))
	default:
		return fmt.Sprintf("%s, ran %s", l.StartedAt.Format("2006-01-02 15:04"), l.Duration().Round(time.Second))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
