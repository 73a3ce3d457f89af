package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/smartnotes/internal/autostart"
	"github.com/zjrosen/smartnotes/internal/config"
	"github.com/zjrosen/smartnotes/internal/history"
	"github.com/zjrosen/smartnotes/internal/hook"
	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/legacy"
	"github.com/zjrosen/smartnotes/internal/paths"
	"github.com/zjrosen/smartnotes/internal/store"
	"github.com/zjrosen/smartnotes/internal/supervisor"
	"github.com/zjrosen/smartnotes/internal/testutil"
)

type fixture struct {
	dir     string
	cfg     config.Config
	store   *store.Store
	reg     *autostart.Registry
	hook    *hook.Memory
	spawner *supervisor.FakeSpawner
	sup     *supervisor.Supervisor
	ctrl    *Controller
	clock   time.Time
	seq     int
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	return newFixtureIn(t, t.TempDir(), mutate...)
}

// newFixtureIn opens a controller over an existing data directory.
func newFixtureIn(t *testing.T, dir string, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	f := &fixture{
		dir:   dir,
		cfg:   config.Defaults(),
		hook:  hook.NewMemory(),
		clock: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
	for _, m := range mutate {
		m(&f.cfg)
	}
	f.spawner = supervisor.NewFakeSpawner()
	f.sup = supervisor.New(f.spawner)
	t.Cleanup(f.sup.Close)
	f.ctrl = f.open(t)
	return f
}

// open builds a fresh controller over the fixture's directory, as a new
// process would.
func (f *fixture) open(t *testing.T) *Controller {
	t.Helper()
	f.store = store.New(f.dir)
	f.reg = autostart.Open(f.store.Layout().AutoStart())
	c, err := New(Deps{
		Config:      f.cfg,
		Store:       f.store,
		Registry:    f.reg,
		Hook:        f.hook,
		Supervisor:  f.sup,
		Now:         f.now,
		NewID:       f.nextID,
		SelfCommand: []string{"/usr/bin/smartnotes", "startup"},
	})
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func (f *fixture) now() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) nextID() string {
	f.seq++
	return fmt.Sprintf("%08d-0000-4000-8000-000000000000", f.seq)
}

func (f *fixture) path(id string, role paths.Role) string {
	return f.store.Layout().Role(id, role)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestCreate_DefaultsAndNotesFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	b, err := f.ctrl.Create(ctx)
	require.NoError(t, err)

	require.Equal(t, "New Instance 1", a.Name)
	require.Equal(t, "New Instance 2", b.Name)
	require.Equal(t, instance.ThemeDark, a.Theme)
	require.NotEqual(t, a.ID, b.ID)

	info, err := os.Stat(f.path(a.ID, paths.RoleNotes))
	require.NoError(t, err)
	require.Zero(t, info.Size())

	views := f.ctrl.Views()
	require.Len(t, views, 2)
	require.Equal(t, a.ID, views[0].ID)
	require.Equal(t, StatusStopped, views[0].Status())
	require.Equal(t, "Off", views[0].AutoStartLabel())
}

func TestCreate_UniqueIDs(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.MaxInstances = 1000 })
	f.ctrl.newID = instance.NewID
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		inst, err := f.ctrl.Create(context.Background())
		require.NoError(t, err)
		require.False(t, seen[inst.ID], "duplicate id %s", inst.ID)
		seen[inst.ID] = true
	}
	require.Len(t, f.ctrl.Views(), 1000)
}

func TestCreate_CapReached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := f.ctrl.Create(ctx)
		require.NoError(t, err)
	}

	_, err := f.ctrl.Create(ctx)
	require.ErrorIs(t, err, ErrCapReached)
	require.Len(t, f.store.Scan().Instances, 10)

	first := f.ctrl.Views()[0]
	_, err = f.ctrl.Clone(ctx, first.ID)
	require.ErrorIs(t, err, ErrCapReached)
	require.Len(t, f.store.Scan().Instances, 10)
}

func TestCreate_AutoStartAndLaunch(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Create.AutoStart = true
		c.Create.Launch = true
	})
	inst, err := f.ctrl.Create(context.Background())
	require.NoError(t, err)

	v, ok := f.ctrl.View(inst.ID)
	require.True(t, ok)
	require.True(t, v.AutoStart)
	require.True(t, v.Running)
	require.Equal(t, []string{inst.ID}, f.spawner.SpawnedIDs())

	f.spawner.Process(inst.ID).Exit(nil)
	f.sup.Wait()
}

func TestClone_CopiesThemeAndNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	_, err = f.ctrl.Rename(ctx, src.ID, "Groceries")
	require.NoError(t, err)

	notes := []byte("milk\n\teggs\r\nüñí\x00")
	require.NoError(t, os.WriteFile(f.path(src.ID, paths.RoleNotes), notes, 0o600))
	src = f.ctrl.instances[src.ID]
	src.Theme = instance.ThemeLight
	require.NoError(t, f.store.Write(src))
	require.NoError(t, f.ctrl.Refresh(ctx))

	clone, err := f.ctrl.Clone(ctx, src.ID)
	require.NoError(t, err)
	require.Equal(t, "Groceries (Copy)", clone.Name)
	require.Equal(t, instance.ThemeLight, clone.Theme)
	require.NotEqual(t, src.ID, clone.ID)

	got, err := os.ReadFile(f.path(clone.ID, paths.RoleNotes))
	require.NoError(t, err)
	require.Equal(t, notes, got)
	require.Len(t, f.ctrl.Views(), 2)
}

func TestClone_MissingSourceNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.path(src.ID, paths.RoleNotes)))

	clone, err := f.ctrl.Clone(ctx, src.ID)
	require.NoError(t, err)
	info, err := os.Stat(f.path(clone.ID, paths.RoleNotes))
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestClone_FailedNotesCopyStartsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	notes := f.path(src.ID, paths.RoleNotes)
	require.NoError(t, os.Remove(notes))
	require.NoError(t, os.Mkdir(notes, 0o700))

	clone, err := f.ctrl.Clone(ctx, src.ID)
	require.NoError(t, err)
	info, err := os.Stat(f.path(clone.ID, paths.RoleNotes))
	require.NoError(t, err)
	require.False(t, info.IsDir())
	require.Zero(t, info.Size())
}

func TestClone_UnknownSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.Clone(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnknownInstance)
	require.Empty(t, f.ctrl.Views())
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, f.ctrl.SetAutoStart(ctx, inst.ID, true))

	for _, bad := range []string{"", "   ", "\t\n"} {
		ok, err := f.ctrl.Rename(ctx, inst.ID, bad)
		require.ErrorIs(t, err, ErrInvalidName)
		require.False(t, ok)
	}
	loaded, err := f.store.Load(inst.ID)
	require.NoError(t, err)
	require.Equal(t, "New Instance 1", loaded.Instance.Name)

	ok, err := f.ctrl.Rename(ctx, inst.ID, "  Work  ")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err = f.store.Load(inst.ID)
	require.NoError(t, err)
	require.Equal(t, "Work", loaded.Instance.Name)
	require.True(t, loaded.Instance.LastModified.After(loaded.Instance.CreatedDate.Time))

	e, found := f.reg.Get(inst.ID)
	require.True(t, found)
	require.Equal(t, "Work", e.Name)

	_, err = f.ctrl.Rename(ctx, "nope", "x")
	require.ErrorIs(t, err, ErrUnknownInstance)
}

func TestDelete_RefusedWhileRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)

	// Confirmation prompt opened before the launch.
	req, err := f.ctrl.RequestDelete(ctx, inst.ID)
	require.NoError(t, err)
	require.Contains(t, req.Prompt(), "cannot be undone")

	require.NoError(t, f.ctrl.Launch(ctx, inst.ID))
	_, err = f.ctrl.RequestDelete(ctx, inst.ID)
	require.ErrorIs(t, err, ErrInstanceRunning)
	_, err = f.ctrl.ConfirmDelete(ctx, req)
	require.ErrorIs(t, err, ErrInstanceRunning)

	require.FileExists(t, f.store.Layout().Metadata(inst.ID))
	require.FileExists(t, f.path(inst.ID, paths.RoleNotes))
	require.Len(t, f.ctrl.Views(), 1)

	f.spawner.Process(inst.ID).Exit(nil)
	f.sup.Wait()
}

// openManager builds a controller the way a separate smartnotes process
// would: its own supervisor, sharing the data directory and journal.
func openManager(t *testing.T, dir string, sup Supervisor, db *history.DB, alive func(int) bool) *Controller {
	t.Helper()
	st := store.New(dir)
	c, err := New(Deps{
		Config:       config.Defaults(),
		Store:        st,
		Registry:     autostart.Open(st.Layout().AutoStart()),
		Hook:         hook.NewMemory(),
		Supervisor:   sup,
		History:      db,
		ProcessAlive: alive,
	})
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestDelete_RefusedWhileRunningInAnotherManager(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	spawner := supervisor.NewFakeSpawner()
	tuiSup := supervisor.New(spawner, supervisor.WithJournal(db))
	t.Cleanup(tuiSup.Close)
	tui := openManager(t, dir, tuiSup, db, func(int) bool { return false })
	inst, err := tui.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, tui.Launch(ctx, inst.ID))
	pid := spawner.Process(inst.ID).PID()

	cliSup := supervisor.New(supervisor.NewFakeSpawner())
	t.Cleanup(cliSup.Close)
	live := map[int]bool{pid: true}
	cli := openManager(t, dir, cliSup, db, func(p int) bool { return live[p] })

	_, err = cli.RequestDelete(ctx, inst.ID)
	require.ErrorIs(t, err, ErrInstanceRunning)
	_, err = cli.ConfirmDelete(ctx, DeleteRequest{ID: inst.ID, Name: inst.Name})
	require.ErrorIs(t, err, ErrInstanceRunning)
	require.FileExists(t, tui.store.Layout().Metadata(inst.ID))
	require.FileExists(t, tui.store.Layout().Role(inst.ID, paths.RoleNotes))

	// An open run whose pid is gone does not block the delete.
	live[pid] = false
	req, err := cli.RequestDelete(ctx, inst.ID)
	require.NoError(t, err)
	live[pid] = true

	// Once the widget exits the journal closes the run.
	spawner.Process(inst.ID).Exit(nil)
	tuiSup.Wait()
	_, err = cli.ConfirmDelete(ctx, req)
	require.NoError(t, err)
	require.NoFileExists(t, tui.store.Layout().Metadata(inst.ID))
}

func TestDelete_RemovesEverything(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AutoStart.Mode = config.AutoStartModeDirect })
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	keep, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	for _, role := range paths.Roles {
		require.NoError(t, os.WriteFile(f.path(inst.ID, role), []byte("x"), 0o600))
	}
	require.NoError(t, f.ctrl.SetAutoStart(ctx, inst.ID, true))
	_, registered := f.hook.Command(hook.EntryName(inst.ID))
	require.True(t, registered)

	req, err := f.ctrl.RequestDelete(ctx, inst.ID)
	require.NoError(t, err)
	require.True(t, req.AutoStart)
	require.Len(t, req.Files, 4)

	res, err := f.ctrl.ConfirmDelete(ctx, req)
	require.NoError(t, err)
	require.Empty(t, res.Problems)

	for _, p := range f.store.Layout().InstanceFiles(inst.ID) {
		require.NoFileExists(t, p)
	}
	require.False(t, f.reg.IsEnabled(inst.ID))
	_, registered = f.hook.Command(hook.EntryName(inst.ID))
	require.False(t, registered)

	views := f.ctrl.Views()
	require.Len(t, views, 1)
	require.Equal(t, keep.ID, views[0].ID)
	require.FileExists(t, f.store.Layout().Metadata(keep.ID))
}

func TestDelete_ToleratesMissingFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.path(inst.ID, paths.RoleNotes)))

	req, err := f.ctrl.RequestDelete(ctx, inst.ID)
	require.NoError(t, err)
	res, err := f.ctrl.ConfirmDelete(ctx, req)
	require.NoError(t, err)
	require.Empty(t, res.Problems)
	require.Empty(t, f.ctrl.Views())
}

func TestAutoStart_SurvivesRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)

	on, err := f.ctrl.ToggleAutoStart(ctx, inst.ID)
	require.NoError(t, err)
	require.True(t, on)

	restarted := f.open(t)
	v, ok := restarted.View(inst.ID)
	require.True(t, ok)
	require.True(t, v.AutoStart)
	require.Equal(t, 1, restarted.Stats().AutoStart)

	on, err = restarted.ToggleAutoStart(ctx, inst.ID)
	require.NoError(t, err)
	require.False(t, on)
	require.False(t, f.open(t).registry.IsEnabled(inst.ID))
}

func TestAutoStart_ManagerModeInstallsGlobalEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)

	global, err := f.ctrl.GlobalAutoStart()
	require.NoError(t, err)
	require.False(t, global)

	require.NoError(t, f.ctrl.SetAutoStart(ctx, inst.ID, true))
	cmd, ok := f.hook.Command(hook.GlobalEntryName)
	require.True(t, ok)
	require.Equal(t, []string{"/usr/bin/smartnotes", "startup"}, cmd)
	_, ok = f.hook.Command(hook.EntryName(inst.ID))
	require.False(t, ok)

	require.NoError(t, f.ctrl.SetGlobalAutoStart(ctx, false))
	global, err = f.ctrl.GlobalAutoStart()
	require.NoError(t, err)
	require.False(t, global)
}

func TestAutoStart_DirectModeRegistersWidget(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.AutoStart.Mode = config.AutoStartModeDirect
		c.Widget.Command = []string{"python", "widget.py"}
	})
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.SetAutoStart(ctx, inst.ID, true))
	cmd, ok := f.hook.Command(hook.EntryName(inst.ID))
	require.True(t, ok)
	require.Equal(t, []string{"python", "widget.py", "--instance-id", inst.ID}, cmd)

	require.NoError(t, f.ctrl.SetAutoStart(ctx, inst.ID, false))
	_, ok = f.hook.Command(hook.EntryName(inst.ID))
	require.False(t, ok)
}

func TestAutoStart_UnknownInstance(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.ToggleAutoStart(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownInstance)
	require.Zero(t, f.reg.Count())
}

func TestLaunchExit_RefreshesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	events := f.sup.Events(ctx)

	require.NoError(t, f.ctrl.Launch(ctx, inst.ID))
	v, _ := f.ctrl.View(inst.ID)
	require.True(t, v.Running)
	require.Equal(t, 1, f.ctrl.Stats().Running)
	require.ErrorIs(t, f.ctrl.Launch(ctx, inst.ID), supervisor.ErrAlreadyRunning)

	refreshes := 0
	f.ctrl.SetOnRefresh(func() { refreshes++ })

	f.spawner.Process(inst.ID).Exit(errors.New("exit status 1"))
	var ev supervisor.ExitEvent
	select {
	case e := <-events:
		ev = e.Payload
	case <-time.After(2 * time.Second):
		t.Fatal("no exit event")
	}
	require.Zero(t, refreshes, "exit must not touch controller state off the owning goroutine")

	f.ctrl.HandleExit(ctx, ev)
	require.Equal(t, 1, refreshes)
	v, _ = f.ctrl.View(inst.ID)
	require.False(t, v.Running)
	require.Zero(t, f.ctrl.Stats().Running)
}

func TestLaunch_SpawnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inst, err := f.ctrl.Create(ctx)
	require.NoError(t, err)

	f.spawner.Err = errors.New("executable not found")
	require.Error(t, f.ctrl.Launch(ctx, inst.ID))
	v, _ := f.ctrl.View(inst.ID)
	require.False(t, v.Running)

	require.ErrorIs(t, f.ctrl.Launch(ctx, "nope"), ErrUnknownInstance)
}

func TestLaunch_RefusesOrphan(t *testing.T) {
	dir := t.TempDir()
	testutil.NewBuilder(t, dir).
		WithOrphanAutoStart("orphan01", "Orphan", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).
		Build()
	f := newFixtureIn(t, dir)

	err := f.ctrl.Launch(context.Background(), "orphan01")
	require.ErrorIs(t, err, ErrMissingMetadata)
	require.Nil(t, f.spawner.Process("orphan01"))
	require.Equal(t, 0, f.ctrl.Stats().Running)
}

func TestLoad_UnionWithRegistryAndLegacy(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.NewBuilder(t, dir).
		WithOrphanAutoStart("orphan01", "Orphan", now).
		WithLegacyEntry("legacy01", "From legacy", true).
		Build()

	f := newFixtureIn(t, dir)
	c := f.ctrl
	views := c.Views()
	require.Len(t, views, 2)
	require.Equal(t, "orphan01", views[0].ID)
	require.True(t, views[0].Orphan)
	require.True(t, views[0].AutoStart)
	require.Equal(t, "legacy01", views[1].ID)
	require.True(t, views[1].AutoStart)
	require.False(t, views[1].Orphan)
	require.FileExists(t, f.store.Layout().Metadata("legacy01"))
	require.FileExists(t, f.store.Layout().LegacyRegistry()+legacy.MigratedSuffix)

	// Metadata wins over the registry snapshot.
	orphan := instance.New("orphan01", "Orphan", instance.ThemeDark, now)
	require.NoError(t, f.store.Write(orphan.Renamed("Restored", now.Add(time.Hour))))
	require.NoError(t, c.Refresh(context.Background()))
	v, _ := c.View("orphan01")
	require.Equal(t, "Restored", v.Name)
	require.False(t, v.Orphan)
}

func TestLoad_StandardData(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	testutil.NewBuilder(t, dir).WithStandardData(now).Build()

	f := newFixtureIn(t, dir)
	views := f.ctrl.Views()
	require.Len(t, views, 3)
	require.Equal(t, []string{testutil.OrphanID, testutil.GroceriesID, testutil.WorkID},
		[]string{views[0].ID, views[1].ID, views[2].ID})
	require.Equal(t, Stats{Total: 3, Running: 0, AutoStart: 2}, f.ctrl.Stats())

	// Deleting the auto-start instance removes every widget file.
	req, err := f.ctrl.RequestDelete(context.Background(), testutil.GroceriesID)
	require.NoError(t, err)
	res, err := f.ctrl.ConfirmDelete(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, res.Problems)
	for _, p := range f.store.Layout().InstanceFiles(testutil.GroceriesID) {
		require.NoFileExists(t, p)
	}
	require.False(t, f.reg.IsEnabled(testutil.GroceriesID))
}

func TestRefresh_ReportsSkippedFiles(t *testing.T) {
	f := newFixture(t)
	bad := filepath.Join(f.dir, ".smart_notes_broken_metadata.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))

	require.NoError(t, f.ctrl.Refresh(context.Background()))
	require.Empty(t, f.ctrl.Views())
	skipped := f.ctrl.Skipped()
	require.Len(t, skipped, 1)
	require.Equal(t, bad, skipped[0].Path)
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.ctrl.Create(ctx)
	require.NoError(t, err)
	_, err = f.ctrl.Create(ctx)
	require.NoError(t, err)

	id, err := f.ctrl.Resolve(a.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, id)

	id, err = f.ctrl.Resolve("00000001")
	require.NoError(t, err)
	require.Equal(t, a.ID, id)

	_, err = f.ctrl.Resolve("0000000")
	require.ErrorIs(t, err, ErrAmbiguousID)
	_, err = f.ctrl.Resolve("ffff")
	require.ErrorIs(t, err, ErrUnknownInstance)
	_, err = f.ctrl.Resolve("")
	require.ErrorIs(t, err, ErrUnknownInstance)
}
