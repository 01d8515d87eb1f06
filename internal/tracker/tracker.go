// Package tracker implements the pending-folder tracker: the monitoring state
// machine, the watch root collection, the deduplicated pending list and the
// session log.
//
// All state is owned by a single goroutine started with Run. Registry events
// arrive through a mailbox subscribed on the event hub, and every public
// method is executed as a closure on that goroutine.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/brianly1003/foldersentinel/internal/hub"
	"github.com/brianly1003/foldersentinel/internal/pathutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options holds the collaborators of a Tracker. Hub, Registry and Disposer
// are required; Store and Audit may be nil.
type Options struct {
	Hub      ports.EventHub
	Registry ports.WatchRegistry
	Disposer ports.Disposer
	Store    ports.RootStore
	Audit    ports.AuditSink

	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// Snapshot is a consistent copy of the tracker's observable state.
type Snapshot = events.SnapshotPayload

// Tracker is the pending-folder tracker.
type Tracker struct {
	hub      ports.EventHub
	registry ports.WatchRegistry
	disposer ports.Disposer
	store    ports.RootStore
	audit    ports.AuditSink
	now      func() time.Time

	inbox *hub.QueueSubscriber
	sub   *hub.FilteredSubscriber
	cmds  chan func()
	done  chan struct{}

	// Owned by the Run goroutine.
	state   domain.MonitorState
	roots   []domain.WatchRoot
	pending []domain.PendingFolder
	logs    []domain.LogEntry

	// unwatched holds roots whose watch this tracker tore down. Events from
	// them can still be in flight and are not turned into pending folders.
	unwatched map[string]bool

	// loadFailed is set while the persisted list could not be read, so a
	// save does not silently replace it.
	loadFailed bool
}

// New creates a tracker and subscribes its mailbox to registry events on the
// hub. The hub must already be running.
func New(opts Options) *Tracker {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	inbox := hub.NewQueueSubscriber("tracker-" + uuid.NewString()[:8])
	sub := hub.NewFilteredSubscriber(inbox,
		events.EventTypeFolderCreated,
		events.EventTypeFolderDeleted,
		events.EventTypeWatchError,
	)

	t := &Tracker{
		hub:      opts.Hub,
		registry: opts.Registry,
		disposer: opts.Disposer,
		store:    opts.Store,
		audit:    opts.Audit,
		now:      now,
		inbox:    inbox,
		sub:      sub,
		cmds:     make(chan func()),
		done:     make(chan struct{}),
		state:    domain.StateStopped,

		unwatched: make(map[string]bool),
	}
	opts.Hub.Subscribe(sub)
	return t
}

// Run drives the owner loop until ctx is cancelled. Public methods block
// until Run is running and return domain.ErrTrackerClosed after it exits.
func (t *Tracker) Run(ctx context.Context) error {
	defer close(t.done)
	defer func() {
		t.hub.Unsubscribe(t.sub.ID())
		_ = t.sub.Close()
	}()

	log.Debug().Str("subscriber", t.sub.ID()).Msg("tracker owner loop started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("tracker owner loop stopped")
			return ctx.Err()

		case fn := <-t.cmds:
			fn()

		case <-t.inbox.Ready():
			t.drainInbox()
		}
	}
}

// do executes fn on the owner goroutine and waits for it to return. Events
// already in the mailbox are applied first, so fn sees every event
// published before the call.
func (t *Tracker) do(fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		t.drainInbox()
		fn()
	}

	select {
	case t.cmds <- wrapped:
	case <-t.done:
		return domain.ErrTrackerClosed
	}
	<-finished
	return nil
}

// drainInbox applies every queued event and publishes the pending list once
// for the whole batch.
func (t *Tracker) drainInbox() {
	changed := false
	for _, e := range t.inbox.Drain() {
		if t.handleEvent(e) {
			changed = true
		}
	}
	if changed {
		t.publishPending()
	}
}

// handleEvent reports whether the pending list changed.
func (t *Tracker) handleEvent(e events.Event) bool {
	base, ok := e.(*events.BaseEvent)
	if !ok {
		return false
	}

	switch p := base.Payload.(type) {
	case events.FolderPayload:
		switch base.EventType {
		case events.EventTypeFolderCreated:
			return t.onFolderCreated(p.Path, p.Root)
		case events.EventTypeFolderDeleted:
			return t.onFolderDeleted(p.Path)
		}
	case events.WatchErrorPayload:
		t.appendLog(domain.LevelError, fmt.Sprintf("watch error: %s - %s", p.Root, p.Error))
	}
	return false
}

func (t *Tracker) onFolderCreated(path, root string) bool {
	if t.unwatched[root] {
		log.Debug().Str("path", path).Str("root", root).Msg("ignoring folder from unwatched root")
		return false
	}
	if t.pendingIndex(path) >= 0 {
		return false
	}
	t.pending = append(t.pending, domain.PendingFolder{
		FullPath:   path,
		RootPath:   root,
		DetectedAt: t.now(),
	})
	t.appendLog(domain.LevelInfo, "new folder: "+path)
	return true
}

func (t *Tracker) onFolderDeleted(path string) bool {
	if !t.removePending(path) {
		return false
	}
	t.appendLog(domain.LevelInfo, "folder removed: "+path)
	return true
}

// StartMonitoring transitions Stopped to Monitoring, establishing a watch for
// every root. With no roots it logs a warning and returns domain.ErrNoRoots.
func (t *Tracker) StartMonitoring() error {
	var result error
	err := t.do(func() { result = t.startLocked() })
	if err != nil {
		return err
	}
	return result
}

func (t *Tracker) startLocked() error {
	if t.state == domain.StateMonitoring {
		return nil
	}
	if len(t.roots) == 0 {
		t.appendLog(domain.LevelWarning, domain.ErrNoRoots.Error())
		return domain.ErrNoRoots
	}

	for _, r := range t.roots {
		delete(t.unwatched, r.Path)
		if !t.registry.AddWatchFolder(r.Path) {
			log.Debug().Str("root", r.Path).Msg("watch not established at start")
		}
	}
	t.setState(domain.StateMonitoring)
	t.appendLog(domain.LevelInfo, "monitoring started")
	return nil
}

// StopMonitoring transitions Monitoring to Stopped, tearing down every watch.
func (t *Tracker) StopMonitoring() error {
	return t.do(t.stopLocked)
}

func (t *Tracker) stopLocked() {
	if t.state == domain.StateStopped {
		return
	}
	for _, r := range t.roots {
		t.registry.RemoveWatchFolder(r.Path)
		t.unwatched[r.Path] = true
	}
	t.setState(domain.StateStopped)
	t.appendLog(domain.LevelInfo, "monitoring stopped")
}

// Toggle starts monitoring when stopped and stops it when monitoring.
func (t *Tracker) Toggle() error {
	var result error
	err := t.do(func() {
		if t.state == domain.StateMonitoring {
			t.stopLocked()
			return
		}
		result = t.startLocked()
	})
	if err != nil {
		return err
	}
	return result
}

// AddRoot adds a watch root. While monitoring the watch is established
// immediately; while stopped only the configuration changes.
func (t *Tracker) AddRoot(path string) error {
	root, err := pathutil.NormalizeRoot(path)
	if err != nil {
		return err
	}
	if !pathutil.IsDir(root) {
		return fmt.Errorf("%s: %w", root, domain.ErrNotDirectory)
	}

	var result error
	err = t.do(func() { result = t.addRootLocked(root) })
	if err != nil {
		return err
	}
	return result
}

func (t *Tracker) addRootLocked(root string) error {
	if t.rootIndex(root) >= 0 {
		return fmt.Errorf("%s: %w", root, domain.ErrRootExists)
	}

	t.roots = append(t.roots, domain.WatchRoot{Path: root, AddedAt: t.now()})
	if t.state == domain.StateMonitoring {
		delete(t.unwatched, root)
		t.registry.AddWatchFolder(root)
	} else {
		t.unwatched[root] = true
	}
	t.appendLog(domain.LevelInfo, "watching folder: "+root)
	t.publishRoots()
	return nil
}

// RemoveRoot removes a watch root and its watch, if any. MonitorState is
// not affected.
func (t *Tracker) RemoveRoot(path string) error {
	root, err := pathutil.NormalizeRoot(path)
	if err != nil {
		return err
	}

	var result error
	err = t.do(func() {
		i := t.rootIndex(root)
		if i < 0 {
			result = fmt.Errorf("%s: %w", root, domain.ErrRootNotFound)
			return
		}
		t.registry.RemoveWatchFolder(root)
		t.unwatched[root] = true
		t.roots = append(t.roots[:i], t.roots[i+1:]...)
		t.appendLog(domain.LevelInfo, "stopped watching folder: "+root)
		t.publishRoots()
	})
	if err != nil {
		return err
	}
	return result
}

// ClearPending empties the pending list. An already empty list is logged at
// info level, not as a warning.
func (t *Tracker) ClearPending() error {
	return t.do(func() {
		if len(t.pending) == 0 {
			t.appendLog(domain.LevelInfo, "pending list is already empty")
			return
		}
		n := len(t.pending)
		t.pending = nil
		t.appendLog(domain.LevelInfo, fmt.Sprintf("cleared %d pending folder(s)", n))
		t.publishPending()
	})
}

// LoadRoots reads the persisted root list. Paths that are no longer
// directories are skipped with a warning; duplicates are skipped.
func (t *Tracker) LoadRoots() error {
	return t.do(t.loadRootsLocked)
}

func (t *Tracker) loadRootsLocked() {
	if t.store == nil {
		return
	}

	paths, err := t.store.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.appendLog(domain.LevelInfo, "no configuration found")
			return
		}
		t.appendLog(domain.LevelError, "failed to load watch roots: "+err.Error())
		t.loadFailed = true
		if len(paths) == 0 {
			return
		}
	} else {
		t.loadFailed = false
	}

	added := 0
	for _, p := range paths {
		root, err := pathutil.NormalizeRoot(p)
		if err != nil {
			continue
		}
		if !pathutil.IsDir(root) {
			t.appendLog(domain.LevelWarning, "skipping missing folder: "+root)
			continue
		}
		if t.rootIndex(root) >= 0 {
			continue
		}
		t.roots = append(t.roots, domain.WatchRoot{Path: root, AddedAt: t.now()})
		t.unwatched[root] = true
		added++
	}

	t.appendLog(domain.LevelInfo, fmt.Sprintf("loaded %d watch root(s)", added))
	if added > 0 {
		t.publishRoots()
	}
}

// SaveRoots persists the ordered root list. A failure is logged and leaves
// in-memory state unchanged.
func (t *Tracker) SaveRoots() error {
	return t.do(func() {
		if t.store == nil {
			return
		}
		if t.loadFailed && !t.backupUnreadableRoots() {
			return
		}
		paths := make([]string, len(t.roots))
		for i, r := range t.roots {
			paths[i] = r.Path
		}
		if err := t.store.Save(paths); err != nil {
			t.appendLog(domain.LevelError, "failed to save watch roots: "+err.Error())
			return
		}
		t.appendLog(domain.LevelInfo, fmt.Sprintf("saved %d watch root(s)", len(paths)))
	})
}

// backupUnreadableRoots sets the unreadable persisted list aside and
// reports whether saving may go ahead.
func (t *Tracker) backupUnreadableRoots() bool {
	backup, ok := t.store.(ports.RootBackup)
	if !ok {
		t.appendLog(domain.LevelWarning, "not saving watch roots: the stored list could not be read")
		return false
	}
	dest, err := backup.Backup()
	if err != nil {
		t.appendLog(domain.LevelError, "not saving watch roots: "+err.Error())
		return false
	}
	t.loadFailed = false
	t.appendLog(domain.LevelWarning, "unreadable watch root list kept as "+dest)
	return true
}

// State returns the current monitoring state.
func (t *Tracker) State() domain.MonitorState {
	state := domain.StateStopped
	_ = t.do(func() { state = t.state })
	return state
}

// Roots returns a copy of the ordered root list.
func (t *Tracker) Roots() []domain.WatchRoot {
	var out []domain.WatchRoot
	_ = t.do(func() { out = t.copyRoots() })
	return out
}

// Pending returns a copy of the ordered pending list.
func (t *Tracker) Pending() []domain.PendingFolder {
	var out []domain.PendingFolder
	_ = t.do(func() { out = t.copyPending() })
	return out
}

// Logs returns the log entries with a sequence number greater than since.
func (t *Tracker) Logs(since int) []domain.LogEntry {
	var out []domain.LogEntry
	_ = t.do(func() {
		if since < 0 {
			since = 0
		}
		if since >= len(t.logs) {
			return
		}
		out = append([]domain.LogEntry(nil), t.logs[since:]...)
	})
	return out
}

// Snapshot returns a consistent copy of the observable state.
func (t *Tracker) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := t.do(func() {
		snap = Snapshot{
			State:   t.state,
			Roots:   t.copyRoots(),
			Pending: t.copyPending(),
			LogSize: len(t.logs),
		}
	})
	return snap, err
}

func (t *Tracker) setState(state domain.MonitorState) {
	t.state = state
	t.hub.Publish(events.NewMonitorStateChangedEvent(state))
}

func (t *Tracker) publishRoots() {
	t.hub.Publish(events.NewRootsChangedEvent(t.copyRoots()))
}

func (t *Tracker) publishPending() {
	t.hub.Publish(events.NewPendingChangedEvent(t.copyPending()))
}

// appendLog adds an entry to the session log, mirrors it to zerolog and the
// audit sink, and announces it on the hub.
func (t *Tracker) appendLog(level domain.LogLevel, msg string) {
	entry := domain.LogEntry{
		Seq:     len(t.logs) + 1,
		Level:   level,
		Message: msg,
		Time:    t.now(),
	}
	t.logs = append(t.logs, entry)

	log.WithLevel(zerologLevel(level)).Int("seq", entry.Seq).Msg(msg)

	if t.audit != nil {
		if err := t.audit.Append(entry); err != nil {
			log.Warn().Err(err).Int("seq", entry.Seq).Msg("failed to record audit entry")
		}
	}

	t.hub.Publish(events.NewLogAppendedEvent(entry))
}

func zerologLevel(level domain.LogLevel) zerolog.Level {
	switch level {
	case domain.LevelWarning:
		return zerolog.WarnLevel
	case domain.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (t *Tracker) rootIndex(path string) int {
	for i, r := range t.roots {
		if r.Path == path {
			return i
		}
	}
	return -1
}

func (t *Tracker) pendingIndex(path string) int {
	for i, f := range t.pending {
		if f.FullPath == path {
			return i
		}
	}
	return -1
}

// removePending drops path from the pending list, reporting whether it was there.
func (t *Tracker) removePending(path string) bool {
	i := t.pendingIndex(path)
	if i < 0 {
		return false
	}
	t.pending = append(t.pending[:i], t.pending[i+1:]...)
	return true
}

func (t *Tracker) copyRoots() []domain.WatchRoot {
	return append([]domain.WatchRoot{}, t.roots...)
}

func (t *Tracker) copyPending() []domain.PendingFolder {
	return append([]domain.PendingFolder{}, t.pending...)
}

