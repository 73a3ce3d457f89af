package app

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/smartnotes/internal/controller"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/supervisor"
	"github.com/zjrosen/smartnotes/internal/ui/modal"
	"github.com/zjrosen/smartnotes/internal/ui/toaster"
)

func (m Model) create() (tea.Model, tea.Cmd) {
	inst, err := m.ctrl.Create(m.ctx)
	if err != nil {
		m.sync()
		return m.fail("Create", err)
	}
	m.sync()
	m.selectID(inst.ID)
	m.table = m.table.EnsureVisible(m.cursor)
	return m.toast(fmt.Sprintf("Created '%s'", inst.Name), toaster.StyleSuccess)
}

func (m Model) clone() (tea.Model, tea.Cmd) {
	src, ok := m.selected()
	if !ok {
		return m.toast("Select an instance to clone", toaster.StyleInfo)
	}
	inst, err := m.ctrl.Clone(m.ctx, src.ID)
	if err != nil {
		m.sync()
		return m.fail("Clone", err)
	}
	m.sync()
	m.selectID(inst.ID)
	m.table = m.table.EnsureVisible(m.cursor)
	return m.toast(fmt.Sprintf("Created '%s'", inst.Name), toaster.StyleSuccess)
}

func (m Model) openRename() (tea.Model, tea.Cmd) {
	v, ok := m.selected()
	if !ok {
		return m.toast("Select an instance to rename", toaster.StyleInfo)
	}
	m.pendingID = v.ID
	return m.openModal(modal.Config{
		Title: "Rename Instance",
		Tag:   tagRename,
		Input: &modal.InputConfig{
			Label:       "Name",
			Placeholder: "Instance name",
			Value:       v.Name,
			MaxLength:   100,
		},
	})
}

func (m Model) openDelete() (tea.Model, tea.Cmd) {
	v, ok := m.selected()
	if !ok {
		return m.toast("Select an instance to delete", toaster.StyleInfo)
	}
	req, err := m.ctrl.RequestDelete(m.ctx, v.ID)
	if err != nil {
		return m.fail("Delete", err)
	}
	m.pendingDelete = req
	return m.openModal(modal.Config{
		Title:          "Delete Instance",
		Tag:            tagDelete,
		Message:        req.Prompt(),
		ConfirmLabel:   "Delete",
		ConfirmVariant: modal.ButtonDanger,
		MinWidth:       50,
	})
}

func (m Model) submit(msg modal.SubmitMsg) (tea.Model, tea.Cmd) {
	switch msg.Tag {
	case tagRename:
		id := m.pendingID
		m.pendingID = ""
		changed, err := m.ctrl.Rename(m.ctx, id, msg.Value)
		m.sync()
		if err != nil {
			return m.fail("Rename", err)
		}
		if !changed {
			return m, nil
		}
		return m.toast(fmt.Sprintf("Renamed to '%s'", strings.TrimSpace(msg.Value)), toaster.StyleSuccess)

	case tagDelete:
		req := m.pendingDelete
		m.pendingDelete = controller.DeleteRequest{}
		res, err := m.ctrl.ConfirmDelete(m.ctx, req)
		m.sync()
		if err != nil {
			return m.fail("Delete", err)
		}
		if len(res.Problems) > 0 {
			return m.toast(fmt.Sprintf("Deleted '%s' with %d problem(s), see log", res.Name, len(res.Problems)), toaster.StyleWarn)
		}
		return m.toast(fmt.Sprintf("Deleted '%s'", res.Name), toaster.StyleSuccess)
	}
	return m, nil
}

func (m Model) launch() (tea.Model, tea.Cmd) {
	v, ok := m.selected()
	if !ok {
		return m, nil
	}
	err := m.ctrl.Launch(m.ctx, v.ID)
	m.sync()
	switch {
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		return m.toast(fmt.Sprintf("'%s' is already running", v.Name), toaster.StyleInfo)
	case err != nil:
		return m.fail("Launch", err)
	}
	return m.toast(fmt.Sprintf("Launched '%s'", v.Name), toaster.StyleSuccess)
}

func (m Model) toggleAutoStart() (tea.Model, tea.Cmd) {
	v, ok := m.selected()
	if !ok {
		return m, nil
	}
	on, err := m.ctrl.ToggleAutoStart(m.ctx, v.ID)
	m.sync()
	if err != nil {
		return m.fail("Auto-start", err)
	}
	state := "disabled"
	if on {
		state = "enabled"
	}
	return m.toast(fmt.Sprintf("Auto-start %s for '%s'", state, v.Name), toaster.StyleSuccess)
}

func (m Model) toggleGlobal() (tea.Model, tea.Cmd) {
	on := !m.globalOn
	err := m.ctrl.SetGlobalAutoStart(m.ctx, on)
	m.sync()
	if err != nil {
		return m.fail("Startup entry", err)
	}
	if on {
		return m.toast("Smart Notes will start with the system", toaster.StyleSuccess)
	}
	return m.toast("Smart Notes will no longer start with the system", toaster.StyleInfo)
}

func (m Model) refresh() (tea.Model, tea.Cmd) {
	err := m.ctrl.Refresh(m.ctx)
	m.sync()
	if err != nil {
		return m.fail("Refresh", err)
	}
	if n := len(m.ctrl.Skipped()); n > 0 {
		return m.toast(fmt.Sprintf("Refreshed; %d unreadable metadata file(s) skipped", n), toaster.StyleWarn)
	}
	return m.toast("Refreshed", toaster.StyleInfo)
}

// fail maps controller errors to toasts. Expected refusals are warnings,
// anything else is an error.
func (m Model) fail(op string, err error) (tea.Model, tea.Cmd) {
	log.Warn(log.CatUI, op+" failed", "error", err)
	switch {
	case errors.Is(err, controller.ErrCapReached):
		return m.toast(fmt.Sprintf("Maximum number of instances (%d) reached", m.ctrl.Config().MaxInstances), toaster.StyleWarn)
	case errors.Is(err, controller.ErrInvalidName):
		return m.toast("Please enter a valid name!", toaster.StyleError)
	case errors.Is(err, controller.ErrInstanceRunning):
		return m.toast("Instance is running. Close it before deleting.", toaster.StyleWarn)
	case errors.Is(err, controller.ErrMissingMetadata):
		return m.toast("Metadata is missing. Delete or disable this entry.", toaster.StyleWarn)
	case errors.Is(err, controller.ErrStartupEntry):
		return m.toast(err.Error(), toaster.StyleWarn)
	}
	return m.toast(fmt.Sprintf("%s failed: %v", op, err), toaster.StyleError)
}
