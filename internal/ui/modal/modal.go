// Package modal is the dialog used for prompts and confirmations: an
// optional single text input above Confirm and Cancel buttons.
package modal

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/smartnotes/internal/ui/overlay"
	"github.com/zjrosen/smartnotes/internal/ui/styles"
)

// ButtonVariant styles the confirm button.
type ButtonVariant int

const (
	ButtonPrimary ButtonVariant = iota
	ButtonDanger                // destructive actions
)

// InputConfig describes the text input.
type InputConfig struct {
	Label       string
	Placeholder string
	Value       string
	MaxLength   int
}

// Config controls modal appearance.
type Config struct {
	Title          string
	Message        string
	Input          *InputConfig // nil for a plain confirmation
	ConfirmLabel   string       // default "Save" with an input, "Confirm" without
	ConfirmVariant ButtonVariant
	MinWidth       int
	// Tag is echoed in SubmitMsg and CancelMsg so the parent can tell
	// dialogs apart.
	Tag string
}

// SubmitMsg is sent when the user confirms.
type SubmitMsg struct {
	Tag   string
	Value string
}

// CancelMsg is sent on Esc or Cancel.
type CancelMsg struct {
	Tag string
}

// Field identifies the focused element.
type Field int

const (
	FieldInput Field = iota
	FieldConfirm
	FieldCancel
)

// Model is the modal state.
type Model struct {
	config  Config
	input   textinput.Model
	focused Field
	width   int
	height  int
}

// New builds a modal. Input modals start focused on the input,
// confirmations on the confirm button.
func New(cfg Config) Model {
	m := Model{config: cfg, focused: FieldConfirm}
	if cfg.Input != nil {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = cfg.Input.Placeholder
		ti.Width = max(cfg.MinWidth, 40) - 4
		if cfg.Input.MaxLength > 0 {
			ti.CharLimit = cfg.Input.MaxLength
		}
		ti.SetValue(cfg.Input.Value)
		ti.Focus()
		m.input = ti
		m.focused = FieldInput
	}
	return m
}

// Init starts the cursor blink for input modals.
func (m Model) Init() tea.Cmd {
	if m.hasInput() {
		return textinput.Blink
	}
	return nil
}

func (m Model) hasInput() bool {
	return m.config.Input != nil
}

// Update handles key and size messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, m.cancel()
		case "tab", "down":
			return m.focus(m.next(1)), nil
		case "shift+tab", "up":
			return m.focus(m.next(-1)), nil
		case "left", "right":
			if m.focused != FieldInput {
				if m.focused == FieldConfirm {
					return m.focus(FieldCancel), nil
				}
				return m.focus(FieldConfirm), nil
			}
		case "enter":
			if m.focused == FieldCancel {
				return m, m.cancel()
			}
			return m, m.submit()
		}
	}

	if m.focused == FieldInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) submit() tea.Cmd {
	msg := SubmitMsg{Tag: m.config.Tag}
	if m.hasInput() {
		msg.Value = m.input.Value()
	}
	return func() tea.Msg { return msg }
}

func (m Model) cancel() tea.Cmd {
	tag := m.config.Tag
	return func() tea.Msg { return CancelMsg{Tag: tag} }
}

func (m Model) next(step int) Field {
	order := []Field{FieldConfirm, FieldCancel}
	if m.hasInput() {
		order = []Field{FieldInput, FieldConfirm, FieldCancel}
	}
	idx := 0
	for i, f := range order {
		if f == m.focused {
			idx = i
		}
	}
	return order[(idx+step+len(order))%len(order)]
}

func (m Model) focus(f Field) Model {
	m.focused = f
	if m.hasInput() {
		if f == FieldInput {
			m.input.Focus()
		} else {
			m.input.Blur()
		}
	}
	return m
}

// Focused returns the focused element.
func (m Model) Focused() Field {
	return m.focused
}

// Value returns the current input text.
func (m Model) Value() string {
	return m.input.Value()
}

// View renders the dialog box.
func (m Model) View() string {
	width := max(m.config.MinWidth, 40, lipgloss.Width(m.config.Title))
	boxWidth := width + 2

	var body strings.Builder
	if m.config.Message != "" {
		body.WriteString(lipgloss.NewStyle().Foreground(styles.TextPrimaryColor).Width(width).Render(m.config.Message))
		body.WriteString("\n\n")
	}
	if m.hasInput() {
		label := m.config.Input.Label
		if label == "" {
			label = "Input"
		}
		body.WriteString(styles.RenderFormSection([]string{m.input.View()}, label, "", width, m.focused == FieldInput, styles.BorderHighlightFocusColor))
		body.WriteString("\n\n")
	}
	body.WriteString(m.buttons())

	title := lipgloss.NewStyle().Bold(true).Foreground(styles.OverlayTitleColor).PaddingLeft(1).Render(m.config.Title)
	divider := lipgloss.NewStyle().Foreground(styles.OverlayBorderColor).Render(strings.Repeat("─", boxWidth))
	content := title + "\n" + divider + "\n" + lipgloss.NewStyle().Padding(1, 1).Render(body.String())

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(boxWidth).
		Render(content)
}

func (m Model) buttons() string {
	label := m.config.ConfirmLabel
	if label == "" {
		label = "Confirm"
		if m.hasInput() {
			label = "Save"
		}
	}
	confirm := styles.PrimaryButtonStyle
	switch {
	case m.config.ConfirmVariant == ButtonDanger && m.focused == FieldConfirm:
		confirm = styles.DangerButtonFocusedStyle
	case m.config.ConfirmVariant == ButtonDanger:
		confirm = styles.DangerButtonStyle
	case m.focused == FieldConfirm:
		confirm = styles.PrimaryButtonFocusedStyle
	}
	cancel := styles.SecondaryButtonStyle
	if m.focused == FieldCancel {
		cancel = styles.SecondaryButtonFocusedStyle
	}
	return confirm.Render(label) + "  " + cancel.Render("Cancel")
}

// SetSize records the viewport size used by Overlay.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
}

// Overlay centers the dialog over bg.
func (m Model) Overlay(bg string) string {
	return overlay.Place(overlay.Config{Width: m.width, Height: m.height, Position: overlay.Center}, m.View(), bg)
}
