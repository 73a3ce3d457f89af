package supervisor

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/smartnotes/internal/pubsub"
)

type journal struct {
	mu       sync.Mutex
	launches []string
	exits    []int64
}

func (j *journal) RecordLaunch(_ context.Context, id string, _ int, _ time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.launches = append(j.launches, id)
	return int64(len(j.launches)), nil
}

func (j *journal) RecordExit(_ context.Context, runID int64, _ time.Time, _ error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.exits = append(j.exits, runID)
	return nil
}

func nextEvent(t *testing.T, ch <-chan pubsub.Event[ExitEvent]) pubsub.Event[ExitEvent] {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit event")
		return pubsub.Event[ExitEvent]{}
	}
}

func TestLaunch_TracksUntilExit(t *testing.T) {
	fs := NewFakeSpawner()
	j := &journal{}
	s := New(fs, WithJournal(j))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)

	require.NoError(t, s.Launch(ctx, "a"))
	require.True(t, s.IsRunning("a"))
	pid, ok := s.PID("a")
	require.True(t, ok)
	require.Equal(t, 1001, pid)
	require.Equal(t, []string{"a"}, s.Running())

	exitErr := errors.New("exit status 1")
	fs.Process("a").Exit(exitErr)

	ev := nextEvent(t, events)
	require.Equal(t, pubsub.TopicWidgetExit, ev.Topic)
	require.Equal(t, uint64(1), ev.Seq)
	require.Equal(t, "a", ev.Payload.ID)
	require.Equal(t, 1001, ev.Payload.PID)
	require.ErrorIs(t, ev.Payload.Err, exitErr)
	require.False(t, s.IsRunning("a"))

	s.Wait()
	require.Equal(t, []string{"a"}, j.launches)
	require.Equal(t, []int64{1}, j.exits)
}

func TestLaunch_AlreadyRunning(t *testing.T) {
	fs := NewFakeSpawner()
	s := New(fs)

	require.NoError(t, s.Launch(context.Background(), "a"))
	require.ErrorIs(t, s.Launch(context.Background(), "a"), ErrAlreadyRunning)
	require.Equal(t, []string{"a"}, fs.SpawnedIDs())

	fs.Process("a").Exit(nil)
	s.Wait()
	require.NoError(t, s.Launch(context.Background(), "a"))
	fs.Process("a").Exit(nil)
	s.Wait()
}

func TestLaunch_SpawnFailureRollsBack(t *testing.T) {
	fs := NewFakeSpawner()
	fs.Err = errors.New("no such file")
	s := New(fs)

	err := s.Launch(context.Background(), "a")
	require.Error(t, err)
	require.False(t, s.IsRunning("a"))
	require.Empty(t, s.Running())

	require.NoError(t, s.Launch(context.Background(), "a"))
	fs.Process("a").Exit(nil)
	s.Wait()
}

func TestLaunch_IndependentInstances(t *testing.T) {
	fs := NewFakeSpawner()
	s := New(fs)
	ctx := context.Background()
	events := s.Events(ctx)

	require.NoError(t, s.Launch(ctx, "b"))
	require.NoError(t, s.Launch(ctx, "a"))
	require.Equal(t, []string{"a", "b"}, s.Running())

	fs.Process("b").Exit(nil)
	ev := nextEvent(t, events)
	require.Equal(t, "b", ev.Payload.ID)
	require.Equal(t, []string{"a"}, s.Running())

	fs.Process("a").Exit(nil)
	s.Wait()
	s.Close()
}

func TestWidgetArgs(t *testing.T) {
	cmd := []string{"python", "widget.py"}
	require.Equal(t, []string{"python", "widget.py", "--instance-id", "abc"}, WidgetArgs(cmd, "abc"))
	require.Len(t, cmd, 2)
}

func TestExecSpawner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	// sh -c 'exit 3' --instance-id x: the trailing args become $0 and $1.
	sp := ExecSpawner{Command: []string{sh, "-c", "exit 3"}}
	proc, err := sp.Spawn(context.Background(), "x")
	require.NoError(t, err)
	require.Positive(t, proc.PID())

	var exitErr *exec.ExitError
	require.ErrorAs(t, proc.Wait(), &exitErr)
	require.Equal(t, 3, exitErr.ExitCode())
}

func TestExecSpawner_Empty(t *testing.T) {
	_, err := ExecSpawner{}.Spawn(context.Background(), "x")
	require.Error(t, err)
}
