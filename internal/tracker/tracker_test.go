package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brianly1003/foldersentinel/internal/adapters/watcher"
	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/testutil"
)

type fixture struct {
	tracker  *Tracker
	hub      *testutil.RecordingHub
	registry *testutil.MockWatchRegistry
	disposer *testutil.MockDisposer
	store    *testutil.MemoryRootStore
	audit    *testutil.MemoryAuditSink
}

func newFixture(t *testing.T, storedRoots ...string) *fixture {
	t.Helper()

	f := &fixture{
		hub:      testutil.NewRecordingHub(),
		registry: testutil.NewMockWatchRegistry(),
		disposer: testutil.NewMockDisposer(),
		store:    testutil.NewMemoryRootStore(storedRoots...),
		audit:    &testutil.MemoryAuditSink{},
	}
	f.tracker = New(Options{
		Hub:      f.hub,
		Registry: f.registry,
		Disposer: f.disposer,
		Store:    f.store,
		Audit:    f.audit,
	})
	runTracker(t, f.tracker)
	return f
}

func runTracker(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = tr.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
}

func countLevel(logs []domain.LogEntry, level domain.LogLevel) int {
	n := 0
	for _, e := range logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

func pendingPaths(folders []domain.PendingFolder) []string {
	out := make([]string, len(folders))
	for i, f := range folders {
		out[i] = f.FullPath
	}
	return out
}

func assertPaths(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, want %v", got, want)
	}
}

func (f *fixture) created(path, root string) {
	f.hub.Publish(events.NewFolderCreatedEvent(path, root))
}

func (f *fixture) deleted(path, root string) {
	f.hub.Publish(events.NewFolderDeletedEvent(path, root))
}

func TestTracker_StartWithNoRoots(t *testing.T) {
	f := newFixture(t)

	err := f.tracker.StartMonitoring()

	testutil.AssertErrorIs(t, err, domain.ErrNoRoots, "StartMonitoring")
	testutil.AssertEqual(t, domain.StateStopped, f.tracker.State(), "state")

	logs := f.tracker.Logs(0)
	if len(logs) != 1 {
		t.Fatalf("log size = %d, want 1", len(logs))
	}
	testutil.AssertEqual(t, domain.LevelWarning, logs[0].Level, "log level")
	testutil.AssertEqual(t, "no roots, cannot start", logs[0].Message, "log message")
	if len(f.registry.Calls()) != 0 {
		t.Errorf("registry calls = %v, want none", f.registry.Calls())
	}
}

func TestTracker_AddRootWhileStoppedDefersWatch(t *testing.T) {
	f := newFixture(t)
	b := t.TempDir()

	testutil.AssertNoError(t, f.tracker.AddRoot(b), "AddRoot")
	if len(f.registry.Calls()) != 0 {
		t.Fatalf("watch established at add time: %v", f.registry.Calls())
	}

	testutil.AssertNoError(t, f.tracker.StartMonitoring(), "StartMonitoring")

	assertPaths(t, f.registry.Calls(), []string{"add:" + b})
	testutil.AssertEqual(t, domain.StateMonitoring, f.tracker.State(), "state")
	testutil.AssertTrue(t, f.registry.IsWatched(b), "root watched after start")
}

func TestTracker_AddRootWhileMonitoring(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	b := t.TempDir()

	_ = f.tracker.AddRoot(a)
	_ = f.tracker.StartMonitoring()
	testutil.AssertNoError(t, f.tracker.AddRoot(b), "AddRoot while monitoring")

	testutil.AssertTrue(t, f.registry.IsWatched(b), "new root watched immediately")
	testutil.AssertEqual(t, 2, len(f.tracker.Roots()), "root count")
}

func TestTracker_AddRootValidation(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"empty", "   ", domain.ErrEmptyPath},
		{"missing", filepath.Join(dir, "missing"), domain.ErrNotDirectory},
		{"file", file, domain.ErrNotDirectory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.tracker.AddRoot(tt.path)
			testutil.AssertErrorIs(t, err, tt.want, "AddRoot")
		})
	}

	testutil.AssertEqual(t, 0, len(f.tracker.Roots()), "roots after rejected adds")
}

func TestTracker_RootsStayUnique(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()

	testutil.AssertNoError(t, f.tracker.AddRoot(a), "first add")
	testutil.AssertErrorIs(t, f.tracker.AddRoot(a), domain.ErrRootExists, "duplicate add")
	testutil.AssertErrorIs(t, f.tracker.AddRoot(a+string(filepath.Separator)), domain.ErrRootExists, "trailing separator")
	testutil.AssertErrorIs(t, f.tracker.AddRoot(filepath.Join(a, "sub", "..")), domain.ErrRootExists, "unclean path")

	_ = f.tracker.RemoveRoot(a)
	testutil.AssertNoError(t, f.tracker.AddRoot(a), "re-add after remove")

	testutil.AssertEqual(t, 1, len(f.tracker.Roots()), "root count")
}

func TestTracker_RemoveRoot(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	b := t.TempDir()
	_ = f.tracker.AddRoot(a)
	_ = f.tracker.AddRoot(b)
	_ = f.tracker.StartMonitoring()

	testutil.AssertNoError(t, f.tracker.RemoveRoot(a), "RemoveRoot")

	testutil.AssertFalse(t, f.registry.IsWatched(a), "removed root still watched")
	testutil.AssertTrue(t, f.registry.IsWatched(b), "other root watched")
	testutil.AssertEqual(t, domain.StateMonitoring, f.tracker.State(), "state")

	roots := f.tracker.Roots()
	if len(roots) != 1 || roots[0].Path != b {
		t.Errorf("roots = %v, want [%s]", roots, b)
	}
}

func TestTracker_RemoveRootWhileStopped(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	_ = f.tracker.AddRoot(a)

	testutil.AssertNoError(t, f.tracker.RemoveRoot(a), "RemoveRoot")

	// The registry is asked even though nothing is watched.
	assertPaths(t, f.registry.Calls(), []string{"remove:" + a})
	testutil.AssertEqual(t, domain.StateStopped, f.tracker.State(), "state")
}

func TestTracker_RemoveUnknownRoot(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	_ = f.tracker.AddRoot(a)

	err := f.tracker.RemoveRoot(filepath.Join(a, "never-added"))

	testutil.AssertErrorIs(t, err, domain.ErrRootNotFound, "RemoveRoot")
	testutil.AssertEqual(t, 1, len(f.tracker.Roots()), "roots unchanged")
}

func TestTracker_StopMonitoringKeepsRoots(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	b := t.TempDir()
	_ = f.tracker.AddRoot(a)
	_ = f.tracker.AddRoot(b)
	_ = f.tracker.StartMonitoring()

	testutil.AssertNoError(t, f.tracker.StopMonitoring(), "StopMonitoring")

	testutil.AssertEqual(t, domain.StateStopped, f.tracker.State(), "state")
	testutil.AssertFalse(t, f.registry.IsRunning(), "watches left after stop")
	testutil.AssertEqual(t, 2, len(f.tracker.Roots()), "roots survive stop")

	// Stopping again is a no-op.
	before := len(f.tracker.Logs(0))
	_ = f.tracker.StopMonitoring()
	testutil.AssertEqual(t, before, len(f.tracker.Logs(0)), "log size after second stop")
}

func TestTracker_Toggle(t *testing.T) {
	f := newFixture(t)

	testutil.AssertErrorIs(t, f.tracker.Toggle(), domain.ErrNoRoots, "toggle with no roots")

	_ = f.tracker.AddRoot(t.TempDir())
	testutil.AssertNoError(t, f.tracker.Toggle(), "toggle on")
	testutil.AssertEqual(t, domain.StateMonitoring, f.tracker.State(), "after first toggle")
	testutil.AssertNoError(t, f.tracker.Toggle(), "toggle off")
	testutil.AssertEqual(t, domain.StateStopped, f.tracker.State(), "after second toggle")
}

func TestTracker_DuplicateCreatedIsDeduplicated(t *testing.T) {
	f := newFixture(t)
	root := "/data/a"
	path := "/data/a/x"

	f.created(path, root)
	f.created(path, root)

	pending := f.tracker.Pending()
	assertPaths(t, pendingPaths(pending), []string{path})
	testutil.AssertEqual(t, root, pending[0].RootPath, "root path")
	testutil.AssertEqual(t, "x", pending[0].Name(), "name")
	testutil.AssertEqual(t, 1, countLevel(f.tracker.Logs(0), domain.LevelInfo), "info logs")
}

func TestTracker_CreateThenDeleteNetsToAbsence(t *testing.T) {
	f := newFixture(t)

	f.created("/data/a/x", "/data/a")
	f.created("/data/a/y", "/data/a")
	f.deleted("/data/a/x", "/data/a")

	assertPaths(t, pendingPaths(f.tracker.Pending()), []string{"/data/a/y"})
}

func TestTracker_DeleteOfUntrackedPathIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.deleted("/data/a/readme.txt", "/data/a")

	testutil.AssertEqual(t, 0, len(f.tracker.Pending()), "pending size")
	testutil.AssertEqual(t, 0, len(f.tracker.Logs(0)), "log size")
}

func TestTracker_WatchErrorIsLogged(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	_ = f.tracker.AddRoot(a)
	_ = f.tracker.StartMonitoring()
	f.created(filepath.Join(a, "x"), a)

	f.hub.Publish(events.NewWatchErrorEvent(a, errors.New("event queue overflow")))

	logs := f.tracker.Logs(0)
	last := logs[len(logs)-1]
	testutil.AssertEqual(t, domain.LevelError, last.Level, "level")
	testutil.AssertContains(t, last.Message, a, "message names root")
	testutil.AssertContains(t, last.Message, "event queue overflow", "message names error")
	testutil.AssertEqual(t, domain.StateMonitoring, f.tracker.State(), "state unchanged")
	testutil.AssertEqual(t, 1, len(f.tracker.Roots()), "roots unchanged")
	testutil.AssertEqual(t, 1, len(f.tracker.Pending()), "pending unchanged")
}

func TestTracker_IgnoresOwnStateEvents(t *testing.T) {
	f := newFixture(t)
	_ = f.tracker.AddRoot(t.TempDir())
	_ = f.tracker.StartMonitoring()
	f.created("/data/a/x", "/data/a")
	_ = f.tracker.Pending()

	testutil.AssertEqual(t, 0, f.tracker.inbox.Len(), "mailbox length")
	if len(f.hub.EventsOfType(events.EventTypeMonitorStateChanged)) != 1 {
		t.Error("expected one monitor_state_changed event")
	}
	if len(f.hub.EventsOfType(events.EventTypeRootsChanged)) != 1 {
		t.Error("expected one roots_changed event")
	}
	if len(f.hub.EventsOfType(events.EventTypePendingChanged)) != 1 {
		t.Error("expected one pending_changed event")
	}
}

func TestTracker_ClearPending(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/r/a", "/r/b", "/r/c"} {
		f.created(p, "/r")
	}
	before := f.tracker.Logs(0)

	testutil.AssertNoError(t, f.tracker.ClearPending(), "ClearPending")

	testutil.AssertEqual(t, 0, len(f.tracker.Pending()), "pending size")
	added := f.tracker.Logs(len(before))
	if len(added) != 1 || added[0].Level != domain.LevelInfo {
		t.Errorf("clear logs = %v, want one info entry", added)
	}
}

func TestTracker_ClearPendingWhenEmpty(t *testing.T) {
	f := newFixture(t)

	_ = f.tracker.ClearPending()

	logs := f.tracker.Logs(0)
	if len(logs) != 1 {
		t.Fatalf("log size = %d, want 1", len(logs))
	}
	testutil.AssertEqual(t, domain.LevelInfo, logs[0].Level, "level")
	testutil.AssertEqual(t, 0, len(f.hub.EventsOfType(events.EventTypePendingChanged)), "pending_changed events")
}

func TestTracker_LogsSince(t *testing.T) {
	f := newFixture(t)
	f.created("/r/a", "/r")
	f.created("/r/b", "/r")
	f.created("/r/c", "/r")

	testutil.AssertEqual(t, 3, len(f.tracker.Logs(0)), "all entries")
	tail := f.tracker.Logs(2)
	if len(tail) != 1 || tail[0].Seq != 3 {
		t.Errorf("Logs(2) = %v, want the entry with seq 3", tail)
	}
	testutil.AssertEqual(t, 0, len(f.tracker.Logs(10)), "past the end")
	testutil.AssertEqual(t, 3, len(f.tracker.Logs(-5)), "negative since")
}

func TestTracker_LogsMirroredToAudit(t *testing.T) {
	f := newFixture(t)
	_ = f.tracker.StartMonitoring()
	f.created("/r/a", "/r")

	logs := f.tracker.Logs(0)
	audited := f.audit.Entries()
	if len(audited) != len(logs) {
		t.Fatalf("audit entries = %d, want %d", len(audited), len(logs))
	}
	for i := range logs {
		testutil.AssertEqual(t, logs[i].Message, audited[i].Message, "audited message")
	}
	testutil.AssertEqual(t, len(logs), len(f.hub.EventsOfType(events.EventTypeLogAppended)), "log_appended events")
}

func TestTracker_AuditFailureDoesNotAffectLog(t *testing.T) {
	f := newFixture(t)
	f.audit.Err = testutil.ErrInjected

	_ = f.tracker.ClearPending()

	testutil.AssertEqual(t, 1, len(f.tracker.Logs(0)), "log size")
}

func TestTracker_LoadRootsMissingConfiguration(t *testing.T) {
	f := newFixture(t)

	testutil.AssertNoError(t, f.tracker.LoadRoots(), "LoadRoots")

	logs := f.tracker.Logs(0)
	if len(logs) != 1 || logs[0].Message != "no configuration found" {
		t.Errorf("logs = %v, want a single no configuration found entry", logs)
	}
	testutil.AssertEqual(t, domain.LevelInfo, logs[0].Level, "level")
	testutil.AssertEqual(t, 0, len(f.tracker.Roots()), "roots")
}

func TestTracker_LoadRootsSkipsMissingAndDuplicates(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	gone := filepath.Join(t.TempDir(), "gone")
	f := newFixture(t, a, gone, b, a)

	_ = f.tracker.LoadRoots()

	roots := f.tracker.Roots()
	got := make([]string, len(roots))
	for i, r := range roots {
		got[i] = r.Path
	}
	assertPaths(t, got, []string{a, b})

	logs := f.tracker.Logs(0)
	testutil.AssertEqual(t, 1, countLevel(logs, domain.LevelWarning), "warnings")
	testutil.AssertContains(t, logs[0].Message, gone, "warning names skipped path")
}

func TestTracker_LoadRootsError(t *testing.T) {
	f := newFixture(t)
	f.store.LoadErr = errors.New("yaml: line 3: did not find expected node content")

	_ = f.tracker.LoadRoots()

	logs := f.tracker.Logs(0)
	testutil.AssertEqual(t, 1, countLevel(logs, domain.LevelError), "error logs")
	testutil.AssertEqual(t, 0, len(f.tracker.Roots()), "roots")
}

func TestTracker_SaveRoots(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	b := t.TempDir()
	_ = f.tracker.AddRoot(b)
	_ = f.tracker.AddRoot(a)

	testutil.AssertNoError(t, f.tracker.SaveRoots(), "SaveRoots")

	assertPaths(t, f.store.Paths(), []string{b, a})
}

func TestTracker_SaveRootsError(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	_ = f.tracker.AddRoot(a)
	f.store.SaveErr = testutil.ErrInjected

	_ = f.tracker.SaveRoots()

	logs := f.tracker.Logs(0)
	last := logs[len(logs)-1]
	testutil.AssertEqual(t, domain.LevelError, last.Level, "level")
	testutil.AssertEqual(t, 1, len(f.tracker.Roots()), "roots unchanged")
}

func TestTracker_Snapshot(t *testing.T) {
	f := newFixture(t)
	a := t.TempDir()
	_ = f.tracker.AddRoot(a)
	_ = f.tracker.StartMonitoring()
	f.created(filepath.Join(a, "x"), a)

	snap, err := f.tracker.Snapshot()

	testutil.AssertNoError(t, err, "Snapshot")
	testutil.AssertEqual(t, domain.StateMonitoring, snap.State, "state")
	testutil.AssertEqual(t, 1, len(snap.Roots), "roots")
	testutil.AssertEqual(t, 1, len(snap.Pending), "pending")
	testutil.AssertEqual(t, len(f.tracker.Logs(0)), snap.LogSize, "log size")
}

func TestTracker_ClosedAfterRunExits(t *testing.T) {
	hub := testutil.NewRecordingHub()
	tr := New(Options{
		Hub:      hub,
		Registry: testutil.NewMockWatchRegistry(),
		Disposer: testutil.NewMockDisposer(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = tr.Run(ctx)
	}()
	testutil.AssertEqual(t, 1, hub.SubscriberCount(), "subscribers while running")

	cancel()
	<-stopped

	testutil.AssertErrorIs(t, tr.StartMonitoring(), domain.ErrTrackerClosed, "StartMonitoring")
	testutil.AssertErrorIs(t, tr.ClearPending(), domain.ErrTrackerClosed, "ClearPending")
	_, err := tr.DisposeAll(domain.ModeTrash, nil)
	testutil.AssertErrorIs(t, err, domain.ErrTrackerClosed, "DisposeAll")
	testutil.AssertEqual(t, 0, hub.SubscriberCount(), "subscribers after exit")
}

func TestTracker_EndToEndWithRegistry(t *testing.T) {
	hub := testutil.NewRecordingHub()
	registry := watcher.NewRegistry(hub, 0)
	t.Cleanup(registry.Stop)

	tr := New(Options{
		Hub:      hub,
		Registry: registry,
		Disposer: testutil.NewMockDisposer(),
	})
	runTracker(t, tr)

	root := t.TempDir()
	testutil.AssertNoError(t, tr.AddRoot(root), "AddRoot")
	testutil.AssertNoError(t, tr.StartMonitoring(), "StartMonitoring")

	x := filepath.Join(root, "x")
	if err := os.Mkdir(x, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testutil.Eventually(t, 2*time.Second, func() bool {
		p := tr.Pending()
		return len(p) == 1 && p[0].FullPath == x
	}, "pending = [x]")

	if err := os.Remove(x); err != nil {
		t.Fatalf("remove: %v", err)
	}
	testutil.Eventually(t, 2*time.Second, func() bool {
		return len(tr.Pending()) == 0
	}, "pending = []")
}
