package app

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

// runProgram starts m in a headless Bubble Tea program.
func runProgram(t *testing.T, m Model) *teatest.TestModel {
	t.Helper()
	return teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 20))
}

func waitForText(t *testing.T, tm *teatest.TestModel, text string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte(text))
	}, teatest.WithDuration(waitFor), teatest.WithCheckInterval(10*time.Millisecond))
}

func quit(t *testing.T, tm *teatest.TestModel) Model {
	t.Helper()
	tm.Send(keyMsg("q"))
	fm, ok := tm.FinalModel(t, teatest.WithFinalTimeout(waitFor)).(Model)
	require.True(t, ok)
	return fm
}

func TestProgram_CreateShowsInstance(t *testing.T) {
	f, m := newFixture(t)
	tm := runProgram(t, m)
	waitForText(t, tm, "No instances yet")

	tm.Send(keyMsg("n"))
	waitForText(t, tm, "Created 'New Instance 1'")

	fm := quit(t, tm)
	require.Equal(t, []string{"New Instance 1"}, names(fm))
	require.FileExists(t, f.store.Layout().Metadata(fm.views[0].ID))
}

func TestProgram_DeleteThroughConfirmModal(t *testing.T) {
	f, m := newFixture(t)
	m = press(t, m, "n")
	id := m.views[0].ID
	tm := runProgram(t, m)

	tm.Send(keyMsg("d"))
	waitForText(t, tm, "Delete Instance")
	tm.Send(keyMsg("enter"))
	waitForText(t, tm, "Deleted 'New Instance 1'")

	fm := quit(t, tm)
	require.Empty(t, fm.views)
	require.Nil(t, fm.modal)
	require.NoFileExists(t, f.store.Layout().Metadata(id))
}

func TestProgram_ExitRefreshesOnce(t *testing.T) {
	f, m := newFixture(t)
	m = press(t, m, "n")
	m = press(t, m, "enter")
	id := m.views[0].ID
	require.True(t, m.views[0].Running)

	var refreshes int
	f.ctrl.SetOnRefresh(func() { refreshes++ })
	tm := runProgram(t, m)

	f.spawner.Process(id).Exit(errors.New("exit status 2"))
	waitForText(t, tm, "exited with an error")

	fm := quit(t, tm)
	require.False(t, fm.views[0].Running)
	require.Equal(t, 0, f.ctrl.Stats().Running)
	require.Equal(t, 1, refreshes)
}

func TestProgram_QuitKey(t *testing.T) {
	_, m := newFixture(t)
	tm := runProgram(t, m)
	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(waitFor))
}
