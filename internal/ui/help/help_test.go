package help

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/smartnotes/internal/keys"
)

func TestView_ListsEveryBinding(t *testing.T) {
	m := New(keys.DefaultKeyMap()).SetSize(120, 40)
	out := ansi.Strip(m.View())

	require.Contains(t, out, "Keybindings")
	for _, s := range sections {
		require.Contains(t, out, s)
	}
	for _, group := range keys.DefaultKeyMap().FullHelp() {
		for _, b := range group {
			require.Contains(t, out, b.Help().Desc)
		}
	}
	require.Contains(t, out, "Press ? or Esc to close")
}

func TestOverlay_PreservesBackgroundHeight(t *testing.T) {
	m := New(keys.DefaultKeyMap()).SetSize(120, 30)
	bg := strings.TrimSuffix(strings.Repeat(strings.Repeat("#", 120)+"\n", 30), "\n")

	out := m.Overlay(bg)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 30)
	require.Equal(t, strings.Repeat("#", 120), lines[0])
	require.Contains(t, ansi.Strip(out), "new instance")
}
