package table

import (
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

type row struct {
	n    int
	name string
}

func columns() []Column[row] {
	return []Column[row]{
		{Header: "#", Width: 3, Align: lipgloss.Right, Value: func(r row) string { return strconv.Itoa(r.n) }},
		{Header: "Name", MinWidth: 4, Value: func(r row) string { return r.name }},
		{Header: "Wide", Width: 10, HideBelow: 40, Value: func(row) string { return "extra" }},
	}
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{n: i, name: "row" + strconv.Itoa(i)}
	}
	return out
}

func TestView_HeaderAndRows(t *testing.T) {
	m := New(columns(), "").SetRows(rows(2)).SetSize(50, 4)
	lines := strings.Split(ansi.Strip(m.View(-1)), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "  # Name"))
	require.Contains(t, lines[0], "Wide")
	require.True(t, strings.HasPrefix(lines[1], "  0 row0"))
	require.Contains(t, lines[2], "row1")
	require.Empty(t, lines[3])
}

func TestView_HidesNarrowColumns(t *testing.T) {
	m := New(columns(), "").SetRows(rows(1)).SetSize(30, 2)
	out := ansi.Strip(m.View(-1))
	require.NotContains(t, out, "Wide")
	require.NotContains(t, out, "extra")
}

func TestView_EmptyMessage(t *testing.T) {
	m := New(columns(), "No instances").SetSize(50, 3)
	require.Contains(t, ansi.Strip(m.View(0)), "No instances")
}

func TestView_SelectedRowFillsWidth(t *testing.T) {
	m := New(columns(), "").SetRows(rows(3)).SetSize(50, 4)
	lines := strings.Split(m.View(1), "\n")
	require.Equal(t, 50, lipgloss.Width(lines[2]))
}

func TestEnsureVisible_Scrolls(t *testing.T) {
	m := New(columns(), "").SetRows(rows(10)).SetSize(50, 4)
	require.Equal(t, 0, m.Offset())

	m = m.EnsureVisible(5)
	require.Equal(t, 3, m.Offset())
	require.Contains(t, ansi.Strip(m.View(5)), "row5")
	require.NotContains(t, ansi.Strip(m.View(5)), "row2")

	m = m.EnsureVisible(1)
	require.Equal(t, 1, m.Offset())
}

func TestSetRows_ClampsOffset(t *testing.T) {
	m := New(columns(), "").SetRows(rows(10)).SetSize(50, 4).EnsureVisible(9)
	require.Equal(t, 7, m.Offset())
	m = m.SetRows(rows(2))
	require.Equal(t, 0, m.Offset())
}

func TestColumnWidths(t *testing.T) {
	w := columnWidths(columns(), 50)
	// 50 - 2 separators - 3 - 10 = 35 for the flex column
	require.Equal(t, []int{3, 35, 10}, w)
}

func TestView_RowZones(t *testing.T) {
	m := New(columns(), "").SetRows(rows(3)).SetSize(50, 4).
		WithRowZones(func(i int, r row) string {
			if r.n == 1 {
				return ""
			}
			return "table-test-row-" + strconv.Itoa(i)
		})

	raw := m.View(0)
	require.NotEqual(t, raw, zone.Scan(raw), "rows carry zone markers")

	var z *zone.ZoneInfo
	for retries := 0; retries < 50 && (z == nil || z.IsZero()); retries++ {
		require.Equal(t, ansi.Strip(raw), ansi.Strip(zone.Scan(m.View(0))))
		time.Sleep(time.Millisecond)
		z = zone.Get("table-test-row-2")
	}
	require.NotNil(t, z)
	require.Equal(t, 3, z.StartY)
	require.Equal(t, 3, z.EndY)
	require.Nil(t, zone.Get("table-test-row-1"))
}
