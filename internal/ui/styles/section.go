package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// RenderFormSection draws rows inside a rounded border with the title set
// into the top edge: ╭─ Title (hint) ───╮. The focused color replaces the
// default border color when focused is true.
func RenderFormSection(rows []string, title, hint string, width int, focused bool, focusedColor lipgloss.TerminalColor) string {
	var color lipgloss.TerminalColor = BorderDefaultColor
	if focused {
		color = focusedColor
	}
	border := lipgloss.NewStyle().Foreground(color)
	inner := max(width-2, 1)

	var top strings.Builder
	if title == "" {
		top.WriteString(border.Render(borderTopLeft + strings.Repeat(borderHorizontal, inner) + borderTopRight))
	} else {
		label := lipgloss.NewStyle().Bold(true).Foreground(color).Render(title)
		if hint != "" {
			label += " " + lipgloss.NewStyle().Foreground(TextMutedColor).Render("("+hint+")")
		}
		rest := max(inner-lipgloss.Width(label)-3, 0)
		top.WriteString(border.Render(borderTopLeft + borderHorizontal + " "))
		top.WriteString(label)
		top.WriteString(border.Render(" " + strings.Repeat(borderHorizontal, rest) + borderTopRight))
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, top.String())
	for _, row := range rows {
		pad := max(inner-lipgloss.Width(row), 0)
		lines = append(lines, border.Render(borderVertical)+row+strings.Repeat(" ", pad)+border.Render(borderVertical))
	}
	lines = append(lines, border.Render(borderBottomLeft+strings.Repeat(borderHorizontal, inner)+borderBottomRight))
	return strings.Join(lines, "\n")
}
