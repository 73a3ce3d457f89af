// Package table renders a fixed set of columns over typed rows with a
// header, a highlighted selection and vertical scrolling. Selection and
// scroll position are owned by the caller. Rows can be marked as
// bubblezone zones so the caller can map mouse clicks back to rows.
package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/smartnotes/internal/ui/styles"
)

// Column defines one table column.
type Column[R any] struct {
	Header string
	// Width is a fixed width. Zero makes the column flex to share the
	// space left by fixed columns.
	Width    int
	MinWidth int
	Align    lipgloss.Position
	// HideBelow hides the column when the table is narrower than this.
	HideBelow int
	// Value returns the plain cell text. Styling comes from Style.
	Value func(row R) string
	// Style is optional.
	Style func(row R) lipgloss.Style
}

// Model holds rows, columns and scroll state.
type Model[R any] struct {
	columns      []Column[R]
	rows         []R
	width        int
	height       int
	offset       int
	emptyMessage string
	rowZoneID    func(i int, row R) string
}

// New creates a table. emptyMessage is shown when there are no rows.
func New[R any](columns []Column[R], emptyMessage string) Model[R] {
	if emptyMessage == "" {
		emptyMessage = "No data"
	}
	return Model[R]{columns: columns, emptyMessage: emptyMessage}
}

// WithRowZones marks every rendered row with the zone id returned by fn.
// An empty id leaves the row unmarked. The enclosing view must pass
// through zone.Scan.
func (m Model[R]) WithRowZones(fn func(i int, row R) string) Model[R] {
	m.rowZoneID = fn
	return m
}

// SetRows replaces the rows.
func (m Model[R]) SetRows(rows []R) Model[R] {
	m.rows = rows
	m.offset = m.clamp(m.offset)
	return m
}

// SetSize sets the rendered size, header included.
func (m Model[R]) SetSize(width, height int) Model[R] {
	m.width, m.height = width, height
	m.offset = m.clamp(m.offset)
	return m
}

// RowCount returns the number of rows.
func (m Model[R]) RowCount() int {
	return len(m.rows)
}

// Offset returns the index of the first visible row.
func (m Model[R]) Offset() int {
	return m.offset
}

func (m Model[R]) bodyHeight() int {
	return max(m.height-1, 0)
}

func (m Model[R]) clamp(offset int) int {
	return max(min(offset, len(m.rows)-m.bodyHeight()), 0)
}

// EnsureVisible scrolls so row i is on screen.
func (m Model[R]) EnsureVisible(i int) Model[R] {
	if i < 0 || i >= len(m.rows) {
		return m
	}
	h := m.bodyHeight()
	switch {
	case i < m.offset:
		m.offset = i
	case h > 0 && i >= m.offset+h:
		m.offset = i - h + 1
	}
	m.offset = m.clamp(m.offset)
	return m
}

// View renders the table with row selected highlighted. A negative
// selected highlights nothing.
func (m Model[R]) View(selected int) string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	cols := m.visibleColumns()
	widths := columnWidths(cols, m.width)

	lines := make([]string, 0, m.height)
	lines = append(lines, m.header(cols, widths))

	if len(m.rows) == 0 {
		msg := styles.MutedStyle.Render(m.emptyMessage)
		lines = append(lines, lipgloss.PlaceHorizontal(m.width, lipgloss.Center, msg))
	} else {
		end := min(m.offset+m.bodyHeight(), len(m.rows))
		for i := m.offset; i < end; i++ {
			line := m.row(m.rows[i], cols, widths, i == selected)
			if m.rowZoneID != nil {
				if id := m.rowZoneID(i, m.rows[i]); id != "" {
					line = zone.Mark(id, line)
				}
			}
			lines = append(lines, line)
		}
	}
	for len(lines) < m.height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model[R]) visibleColumns() []Column[R] {
	out := make([]Column[R], 0, len(m.columns))
	for _, c := range m.columns {
		if c.HideBelow == 0 || m.width >= c.HideBelow {
			out = append(out, c)
		}
	}
	return out
}

// columnWidths gives fixed columns their width and splits the rest evenly
// between flex columns. One space separates columns.
func columnWidths[R any](cols []Column[R], total int) []int {
	widths := make([]int, len(cols))
	remaining := total - max(len(cols)-1, 0)
	flex := 0
	for i, c := range cols {
		if c.Width > 0 {
			widths[i] = c.Width
			remaining -= c.Width
		} else {
			flex++
		}
	}
	if flex == 0 {
		return widths
	}
	share := max(remaining/flex, 0)
	extra := max(remaining-share*flex, 0)
	for i, c := range cols {
		if c.Width > 0 {
			continue
		}
		widths[i] = max(share, c.MinWidth)
		if extra > 0 {
			widths[i]++
			extra--
		}
	}
	return widths
}

func (m Model[R]) header(cols []Column[R], widths []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = align(styles.TruncateString(c.Header, widths[i]), widths[i], c.Align)
	}
	return styles.HeaderStyle.Render(strings.Join(parts, " "))
}

func (m Model[R]) row(r R, cols []Column[R], widths []int, selected bool) string {
	sep := " "
	if selected {
		sep = styles.SelectedRowStyle.Render(" ")
	}
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteString(sep)
		}
		text := align(styles.TruncateString(c.Value(r), widths[i]), widths[i], c.Align)
		style := lipgloss.NewStyle()
		if c.Style != nil {
			style = c.Style(r)
		}
		if selected {
			style = style.Inherit(styles.SelectedRowStyle)
		}
		b.WriteString(style.Render(text))
	}
	out := b.String()
	if selected {
		if gap := m.width - lipgloss.Width(out); gap > 0 {
			out += styles.SelectedRowStyle.Render(strings.Repeat(" ", gap))
		}
	}
	return out
}

func align(text string, width int, pos lipgloss.Position) string {
	gap := width - lipgloss.Width(text)
	if gap <= 0 {
		return text
	}
	switch pos {
	case lipgloss.Right:
		return strings.Repeat(" ", gap) + text
	case lipgloss.Center:
		return strings.Repeat(" ", gap/2) + text + strings.Repeat(" ", gap-gap/2)
	default:
		return styles.PadRight(text, width)
	}
}
