package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.False(t, info.IsDir())

	// Reopening an existing journal is fine.
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestRecordLaunchThenExit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	runID, err := db.RecordLaunch(ctx, "inst-a", 4242, base)
	require.NoError(t, err)
	require.Positive(t, runID)

	l, ok, err := db.Last(ctx, "inst-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, l.Running())
	require.Equal(t, 4242, l.PID)
	require.True(t, l.StartedAt.Equal(base))

	require.NoError(t, db.RecordExit(ctx, runID, base.Add(90*time.Second), errors.New("exit status 2")))
	l, _, err = db.Last(ctx, "inst-a")
	require.NoError(t, err)
	require.False(t, l.Running())
	require.Equal(t, 90*time.Second, l.Duration())
	require.Equal(t, "exit status 2", l.ExitError)
}

func TestLast_NeverLaunched(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.Last(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecentAndForInstance(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "a", "c"} {
		_, err := db.RecordLaunch(ctx, id, 100+i, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	recent, err := db.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].InstanceID)
	require.Equal(t, "a", recent[1].InstanceID)

	all, err := db.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)

	forA, err := db.ForInstance(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, forA, 2)
	require.Equal(t, 102, forA[0].PID)
	require.Equal(t, 100, forA[1].PID)
}

func TestDeleteInstance(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.RecordLaunch(ctx, "a", 1, base)
	require.NoError(t, err)
	_, err = db.RecordLaunch(ctx, "a", 2, base.Add(time.Second))
	require.NoError(t, err)
	_, err = db.RecordLaunch(ctx, "b", 3, base)
	require.NoError(t, err)

	n, err := db.DeleteInstance(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	rest, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "b", rest[0].InstanceID)
}
