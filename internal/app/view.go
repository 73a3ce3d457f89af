package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/smartnotes/internal/controller"
	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/ui/styles"
	"github.com/zjrosen/smartnotes/internal/ui/table"
)

const title = "Smart Notes Manager"

// title, blank line, status bar and key hints
const chromeHeight = 4

func columns() []table.Column[controller.View] {
	return []table.Column[controller.View]{
		{Header: "Name", MinWidth: 12, Value: func(v controller.View) string {
			if v.Orphan {
				return v.Name + " (missing metadata)"
			}
			return v.Name
		}},
		{Header: "Status", Width: 8, Value: func(v controller.View) string { return string(v.Status()) },
			Style: func(v controller.View) lipgloss.Style {
				if v.Running {
					return styles.RunningStyle
				}
				return styles.StoppedStyle
			}},
		{Header: "Auto-Start", Width: 10, Value: controller.View.AutoStartLabel,
			Style: func(v controller.View) lipgloss.Style {
				if v.AutoStart {
					return styles.AutoStartStyle
				}
				return styles.MutedStyle
			}},
		{Header: "Created", Width: 10, HideBelow: 60, Value: func(v controller.View) string { return v.CreatedDate.Date() }},
		{Header: "Modified", Width: 10, HideBelow: 72, Value: func(v controller.View) string { return v.LastModified.Date() }},
		{Header: "ID", Width: 8, HideBelow: 84, Value: func(v controller.View) string { return instance.ShortID(v.ID) },
			Style: func(controller.View) lipgloss.Style { return styles.MutedStyle }},
	}
}

func (m Model) tableHeight() int {
	return max(m.height-chromeHeight, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.table.View(m.cursor))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	b.WriteString("\n")
	b.WriteString(m.hints())
	// Overlays splice lines in place, so row zones resolved on the base
	// layer keep their positions.
	view := zone.Scan(b.String())

	if m.showHelp {
		view = m.help.Overlay(view)
	}
	if m.modal != nil {
		view = m.modal.Overlay(view)
	}
	view = m.toaster.Overlay(view)
	if m.debug && m.logView.Visible() {
		view = m.logView.Overlay(view)
	}
	return view
}

func (m Model) statusBar() string {
	s := m.ctrl.Stats()
	global := "Off"
	if m.globalOn {
		global = "On"
	}
	text := fmt.Sprintf("Total: %d | Running: %d | Auto-Start: %d | System Startup: %s",
		s.Total, s.Running, s.AutoStart, global)
	if n := len(m.ctrl.Skipped()); n > 0 {
		text += fmt.Sprintf(" | Unreadable: %d", n)
	}
	return styles.StatusBarStyle.Render(styles.TruncateString(text, max(m.width-2, 0)))
}

func (m Model) hints() string {
	parts := make([]string, 0, 8)
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styles.MutedStyle.Render(" " + styles.TruncateString(strings.Join(parts, " • "), max(m.width-1, 0)))
}
