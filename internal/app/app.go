// Package app contains the root application model of the instance manager.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/smartnotes/internal/controller"
	"github.com/zjrosen/smartnotes/internal/keys"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/pubsub"
	"github.com/zjrosen/smartnotes/internal/supervisor"
	"github.com/zjrosen/smartnotes/internal/ui/help"
	"github.com/zjrosen/smartnotes/internal/ui/logview"
	"github.com/zjrosen/smartnotes/internal/ui/modal"
	"github.com/zjrosen/smartnotes/internal/ui/table"
	"github.com/zjrosen/smartnotes/internal/ui/toaster"
)

// Modal tags.
const (
	tagRename = "rename"
	tagDelete = "delete"
)

// Options wires the model to its collaborators. Exits and Changes are
// optional; without Changes the table refreshes only after actions.
type Options struct {
	Controller *controller.Controller
	Exits      pubsub.Subscriber[supervisor.ExitEvent]
	// Changes delivers the names of data files that changed on disk.
	Changes pubsub.Subscriber[string]
	// Debug enables the log viewer (ctrl+x).
	Debug bool
	// Now is the clock used for double-click detection. Defaults to
	// time.Now.
	Now func() time.Time
}

// exitMsg carries a widget exit into Update.
type exitMsg struct {
	Event supervisor.ExitEvent
}

// fileChangedMsg reports a change in the data directory.
type fileChangedMsg struct {
	Name string
}

// logLineMsg carries one debug log line.
type logLineMsg struct {
	Line string
}

// Model is the root application state.
type Model struct {
	ctrl *controller.Controller
	keys keys.KeyMap

	table    table.Model[controller.View]
	views    []controller.View
	cursor   int
	globalOn bool

	width  int
	height int

	modal         *modal.Model
	pendingID     string
	pendingDelete controller.DeleteRequest

	help     help.Model
	showHelp bool
	toaster  toaster.Model

	now       func() time.Time
	lastClick click

	debug   bool
	logView logview.Model

	ctx      context.Context
	cancel   context.CancelFunc
	exits    *pubsub.Listener[supervisor.ExitEvent]
	changes  *pubsub.Listener[string]
	logLines *pubsub.Listener[string]
}

// New builds the model. The controller must already be loaded.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	k := keys.DefaultKeyMap()
	m := Model{
		ctrl:    opts.Controller,
		keys:    k,
		table:   table.New(columns(), "No instances yet. Press n to create one.").WithRowZones(rowZoneID),
		help:    help.New(k),
		toaster: toaster.New(),
		debug:   opts.Debug,
		logView: logview.New(logview.DefaultCapacity),
		now:     opts.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if opts.Exits != nil {
		m.exits = pubsub.Listen(ctx, opts.Exits, func(ev pubsub.Event[supervisor.ExitEvent]) tea.Msg {
			return exitMsg{Event: ev.Payload}
		})
	}
	if opts.Changes != nil {
		m.changes = pubsub.Listen(ctx, opts.Changes, func(ev pubsub.Event[string]) tea.Msg {
			return fileChangedMsg{Name: ev.Payload}
		})
	}
	if lines := log.Lines(); opts.Debug && lines != nil {
		m.logLines = pubsub.Listen(ctx, lines, func(ev pubsub.Event[string]) tea.Msg {
			return logLineMsg{Line: ev.Payload}
		})
	}
	m.sync()
	return m
}

// Init starts the event listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenExits(), m.listenChanges(), m.listenLog())
}

func (m Model) listenExits() tea.Cmd   { return m.exits.Next() }
func (m Model) listenChanges() tea.Cmd { return m.changes.Next() }
func (m Model) listenLog() tea.Cmd     { return m.logLines.Next() }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table = m.table.SetSize(msg.Width, m.tableHeight()).EnsureVisible(m.cursor)
		m.help = m.help.SetSize(msg.Width, msg.Height)
		m.toaster = m.toaster.SetSize(msg.Width, msg.Height)
		m.logView.SetSize(msg.Width, msg.Height)
		if m.modal != nil {
			m.modal.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case exitMsg:
		m.ctrl.HandleExit(m.ctx, msg.Event)
		m.sync()
		var cmd tea.Cmd
		if msg.Event.Err != nil {
			m, cmd = m.toast(m.nameOf(msg.Event.ID)+" exited with an error", toaster.StyleWarn)
		}
		return m, tea.Batch(cmd, m.listenExits())

	case fileChangedMsg:
		log.Debug(log.CatUI, "Data file changed", "name", msg.Name)
		if err := m.ctrl.Refresh(m.ctx); err != nil {
			log.Warn(log.CatUI, "Refresh after file change failed", "error", err)
		}
		m.sync()
		return m, m.listenChanges()

	case logLineMsg:
		m.logView.Append(msg.Line)
		return m, m.listenLog()

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case modal.SubmitMsg:
		m.modal = nil
		return m.submit(msg)

	case modal.CancelMsg:
		m.modal = nil
		m.pendingID = ""
		m.pendingDelete = controller.DeleteRequest{}
		return m, nil

	case logview.CloseMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	if m.modal != nil {
		var cmd tea.Cmd
		*m.modal, cmd = m.modal.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.debug && msg.String() == "ctrl+x" {
		m.logView.Toggle()
		return m, nil
	}
	if m.logView.Visible() {
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	if m.modal != nil {
		var cmd tea.Cmd
		*m.modal, cmd = m.modal.Update(msg)
		return m, cmd
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Escape) {
			m.showHelp = false
		}
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Up):
		return m.moveTo(m.cursor - 1), nil
	case key.Matches(msg, m.keys.Down):
		return m.moveTo(m.cursor + 1), nil
	case key.Matches(msg, m.keys.Top):
		return m.moveTo(0), nil
	case key.Matches(msg, m.keys.End):
		return m.moveTo(len(m.views) - 1), nil
	case key.Matches(msg, m.keys.Create):
		return m.create()
	case key.Matches(msg, m.keys.Clone):
		return m.clone()
	case key.Matches(msg, m.keys.Rename):
		return m.openRename()
	case key.Matches(msg, m.keys.Delete):
		return m.openDelete()
	case key.Matches(msg, m.keys.Launch):
		return m.launch()
	case key.Matches(msg, m.keys.ToggleAutoStart):
		return m.toggleAutoStart()
	case key.Matches(msg, m.keys.GlobalHook):
		return m.toggleGlobal()
	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()
	}
	return m, nil
}

// sync copies the controller's views into the table and keeps the cursor
// on the same instance where possible.
func (m *Model) sync() {
	var selected string
	if v, ok := m.selected(); ok {
		selected = v.ID
	}
	m.views = m.ctrl.Views()
	m.table = m.table.SetRows(m.views)
	if on, err := m.ctrl.GlobalAutoStart(); err == nil {
		m.globalOn = on
	}
	m.cursor = min(m.cursor, max(len(m.views)-1, 0))
	if selected != "" {
		m.selectID(selected)
	}
	m.table = m.table.EnsureVisible(m.cursor)
}

func (m *Model) selectID(id string) {
	for i, v := range m.views {
		if v.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) selected() (controller.View, bool) {
	if m.cursor < 0 || m.cursor >= len(m.views) {
		return controller.View{}, false
	}
	return m.views[m.cursor], true
}

func (m Model) moveTo(i int) Model {
	if len(m.views) == 0 {
		return m
	}
	m.cursor = max(min(i, len(m.views)-1), 0)
	m.table = m.table.EnsureVisible(m.cursor)
	return m
}

func (m Model) nameOf(id string) string {
	if v, ok := m.ctrl.View(id); ok {
		return "'" + v.Name + "'"
	}
	return "Instance " + id
}

func (m Model) toast(text string, style toaster.Style) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(text, style, toaster.DefaultDuration)
	return m, cmd
}

func (m Model) openModal(cfg modal.Config) (Model, tea.Cmd) {
	md := modal.New(cfg)
	md.SetSize(m.width, m.height)
	m.modal = &md
	return m, md.Init()
}

// Close cancels the listeners.
func (m *Model) Close() {
	m.cancel()
}
