// Package testutil provides shared test utilities and mocks for foldersentinel tests.
package testutil

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
)

// RecordingSubscriber implements ports.Subscriber and keeps every event it
// accepts. After Fail it rejects events, like a websocket client whose
// connection went away.
type RecordingSubscriber struct {
	id   string
	done chan struct{}

	mu       sync.Mutex
	received []events.Event
	failWith error
	closed   bool
}

// NewRecordingSubscriber creates an empty recording subscriber.
func NewRecordingSubscriber(id string) *RecordingSubscriber {
	return &RecordingSubscriber{id: id, done: make(chan struct{})}
}

func (r *RecordingSubscriber) ID() string { return r.id }

// Send records e unless the subscriber was told to fail.
func (r *RecordingSubscriber) Send(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.received = append(r.received, e)
	return nil
}

func (r *RecordingSubscriber) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
	return nil
}

func (r *RecordingSubscriber) Done() <-chan struct{} { return r.done }

// Fail makes every later Send return err.
func (r *RecordingSubscriber) Fail(err error) {
	r.mu.Lock()
	r.failWith = err
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *RecordingSubscriber) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.received...)
}

func (r *RecordingSubscriber) EventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func (r *RecordingSubscriber) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

var _ ports.Subscriber = (*RecordingSubscriber)(nil)

// FolderChanges renders the folder events in evs as "+path" for a creation
// and "-path" for a deletion, keyed by root. Other events are skipped.
func FolderChanges(evs []events.Event) map[string][]string {
	out := make(map[string][]string)
	for _, e := range evs {
		base, ok := e.(*events.BaseEvent)
		if !ok {
			continue
		}
		p, ok := base.Payload.(events.FolderPayload)
		if !ok {
			continue
		}
		switch base.Type() {
		case events.EventTypeFolderCreated:
			out[p.Root] = append(out[p.Root], "+"+p.Path)
		case events.EventTypeFolderDeleted:
			out[p.Root] = append(out[p.Root], "-"+p.Path)
		}
	}
	return out
}

// RecordingHub implements ports.EventHub synchronously: Publish records the
// event and hands it to every subscriber before returning.
type RecordingHub struct {
	mu   sync.Mutex
	log  []events.Event
	subs []ports.Subscriber
}

// NewRecordingHub creates an empty hub double.
func NewRecordingHub() *RecordingHub {
	return &RecordingHub{}
}

func (h *RecordingHub) Start() error { return nil }
func (h *RecordingHub) Stop() error  { return nil }

// Publish records e and forwards it outside the lock so subscribers may
// publish in turn.
func (h *RecordingHub) Publish(e events.Event) {
	h.mu.Lock()
	h.log = append(h.log, e)
	subs := append([]ports.Subscriber(nil), h.subs...)
	h.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Send(e)
	}
}

func (h *RecordingHub) Subscribe(sub ports.Subscriber) {
	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.mu.Unlock()
}

func (h *RecordingHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.subs[:0]
	for _, sub := range h.subs {
		if sub.ID() != id {
			kept = append(kept, sub)
		}
	}
	h.subs = kept
}

func (h *RecordingHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Published returns how many events have been published since the last Reset.
func (h *RecordingHub) Published() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.log)
}

// EventsOfType returns the published events of the given type in order.
func (h *RecordingHub) EventsOfType(t events.EventType) []*events.BaseEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var result []*events.BaseEvent
	for _, e := range h.log {
		if base, ok := e.(*events.BaseEvent); ok && base.Type() == t {
			result = append(result, base)
		}
	}
	return result
}

// Reset forgets every recorded event. Subscribers stay.
func (h *RecordingHub) Reset() {
	h.mu.Lock()
	h.log = nil
	h.mu.Unlock()
}

var _ ports.EventHub = (*RecordingHub)(nil)

// MockWatchRegistry implements ports.WatchRegistry and records calls.
type MockWatchRegistry struct {
	mu      sync.Mutex
	watched map[string]bool
	calls   []string
	// FailAdd lists roots for which AddWatchFolder reports failure.
	FailAdd map[string]bool
}

// NewMockWatchRegistry creates an empty registry mock.
func NewMockWatchRegistry() *MockWatchRegistry {
	return &MockWatchRegistry{
		watched: make(map[string]bool),
		FailAdd: make(map[string]bool),
	}
}

// Start records the call and watches every root.
func (m *MockWatchRegistry) Start(roots []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "start")
	for _, r := range roots {
		if !m.FailAdd[r] {
			m.watched[r] = true
		}
	}
}

// Stop forgets every watch.
func (m *MockWatchRegistry) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "stop")
	m.watched = make(map[string]bool)
}

// AddWatchFolder records the call and watches path unless configured to fail.
func (m *MockWatchRegistry) AddWatchFolder(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "add:"+path)
	if m.watched[path] || m.FailAdd[path] {
		return false
	}
	m.watched[path] = true
	return true
}

// RemoveWatchFolder records the call and forgets path.
func (m *MockWatchRegistry) RemoveWatchFolder(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "remove:"+path)
	if !m.watched[path] {
		return false
	}
	delete(m.watched, path)
	return true
}

// IsRunning returns true while any path is watched.
func (m *MockWatchRegistry) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watched) > 0
}

// WatchedRoots returns the watched paths.
func (m *MockWatchRegistry) WatchedRoots() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	roots := make([]string, 0, len(m.watched))
	for r := range m.watched {
		roots = append(roots, r)
	}
	return roots
}

// IsWatched reports whether path currently has a watch.
func (m *MockWatchRegistry) IsWatched(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watched[path]
}

// Calls returns the recorded calls, e.g. "add:/data/a".
func (m *MockWatchRegistry) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.calls))
	copy(result, m.calls)
	return result
}

var _ ports.WatchRegistry = (*MockWatchRegistry)(nil)

// DisposeCall records one Dispose invocation.
type DisposeCall struct {
	Path string
	Mode domain.DisposalMode
}

// MockDisposer implements ports.Disposer. Failures are scripted per path as
// a count of attempts that fail before succeeding (-1 fails forever).
type MockDisposer struct {
	mu       sync.Mutex
	calls    []DisposeCall
	failures map[string]int
}

// NewMockDisposer creates a disposer that succeeds for every path.
func NewMockDisposer() *MockDisposer {
	return &MockDisposer{failures: make(map[string]int)}
}

// FailTimes makes the next n attempts for path fail; n < 0 fails forever.
func (m *MockDisposer) FailTimes(path string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = n
}

// Dispose records the call and fails if scripted to.
func (m *MockDisposer) Dispose(path string, mode domain.DisposalMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, DisposeCall{Path: path, Mode: mode})

	n, ok := m.failures[path]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		m.failures[path] = n - 1
	}
	return fmt.Errorf("access denied: %s", path)
}

// Calls returns the recorded calls.
func (m *MockDisposer) Calls() []DisposeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]DisposeCall, len(m.calls))
	copy(result, m.calls)
	return result
}

var _ ports.Disposer = (*MockDisposer)(nil)

// MemoryRootStore implements ports.RootStore in memory.
type MemoryRootStore struct {
	mu      sync.Mutex
	paths   []string
	exists  bool
	LoadErr error
	SaveErr error
}

// NewMemoryRootStore creates a store holding paths. With no paths it
// behaves like a missing file.
func NewMemoryRootStore(paths ...string) *MemoryRootStore {
	return &MemoryRootStore{paths: paths, exists: len(paths) > 0}
}

// Load returns the stored paths.
func (m *MemoryRootStore) Load() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if !m.exists {
		return nil, fmt.Errorf("load roots: %w", fs.ErrNotExist)
	}
	result := make([]string, len(m.paths))
	copy(result, m.paths)
	return result, nil
}

// Save replaces the stored paths.
func (m *MemoryRootStore) Save(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.paths = append([]string(nil), paths...)
	m.exists = true
	return nil
}

// Paths returns the stored paths.
func (m *MemoryRootStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

var _ ports.RootStore = (*MemoryRootStore)(nil)

// MemoryAuditSink implements ports.AuditSink in memory.
type MemoryAuditSink struct {
	mu      sync.Mutex
	entries []domain.LogEntry
	Err     error
}

// Append records the entry.
func (m *MemoryAuditSink) Append(entry domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns the recorded entries.
func (m *MemoryAuditSink) Entries() []domain.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LogEntry(nil), m.entries...)
}

var _ ports.AuditSink = (*MemoryAuditSink)(nil)

// ErrInjected is a generic failure used by tests.
var ErrInjected = errors.New("injected failure")

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("%s: condition not met within %v", msg, timeout)
	}
}

// AssertEqual is a simple equality assertion helper.
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertTrue asserts that a condition is true.
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("%s: expected true, got false", msg)
	}
}

// AssertFalse asserts that a condition is false.
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Errorf("%s: expected false, got true", msg)
	}
}

// AssertNoError asserts that an error is nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertErrorIs asserts that err matches target.
func AssertErrorIs(t *testing.T, err, target error, msg string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("%s: expected error %v, got %v", msg, target, err)
	}
}

// AssertContains checks if a string contains a substring.
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: string %q does not contain %q", msg, s, substr)
	}
}
