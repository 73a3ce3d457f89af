package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/smartnotes/internal/controller"
)

// doubleClickWindow is the longest gap between two clicks on the same row
// that still counts as a double click.
const doubleClickWindow = 400 * time.Millisecond

// click remembers the last left click for double-click detection.
type click struct {
	id string
	at time.Time
}

func rowZoneID(_ int, v controller.View) string {
	return "instance-row-" + v.ID
}

// handleMouse selects the clicked row and launches it on a double click.
// The wheel moves the selection. Mouse input is ignored while an overlay
// is open.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil || m.showHelp || m.logView.Visible() {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if msg.Action == tea.MouseActionPress {
			return m.moveTo(m.cursor - 1), nil
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if msg.Action == tea.MouseActionPress {
			return m.moveTo(m.cursor + 1), nil
		}
		return m, nil
	case tea.MouseButtonLeft:
	default:
		return m, nil
	}
	if msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	for i, v := range m.views {
		z := zone.Get(rowZoneID(i, v))
		if z == nil || !z.InBounds(msg) {
			continue
		}
		now := m.now()
		double := m.lastClick.id == v.ID && now.Sub(m.lastClick.at) <= doubleClickWindow
		m = m.moveTo(i)
		if double {
			m.lastClick = click{}
			return m.launch()
		}
		m.lastClick = click{id: v.ID, at: now}
		return m, nil
	}
	return m, nil
}
