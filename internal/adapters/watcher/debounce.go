package watcher

import (
	"time"

	"github.com/brianly1003/foldersentinel/internal/sync"
)

// changeKind is the coalesced kind of a child entry change.
type changeKind int

const (
	changeCreated changeKind = iota
	changeDeleted
)

func (k changeKind) String() string {
	if k == changeCreated {
		return "created"
	}
	return "deleted"
}

type pendingChange struct {
	kind  changeKind
	gen   uint64
	timer *time.Timer
}

// Debouncer coalesces rapid notifications for the same child path.
type Debouncer struct {
	window   time.Duration
	callback func(path string, kind changeKind)

	mu       sync.Mutex
	pending  map[string]*pendingChange
	stopped  bool
	inFlight sync.WaitGroup
}

// NewDebouncer creates a new debouncer with the given window and callback.
func NewDebouncer(window time.Duration, callback func(path string, kind changeKind)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
		pending:  make(map[string]*pendingChange),
	}
}

// Add queues a change, restarting the window for that path.
func (d *Debouncer) Add(path string, kind changeKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	change, ok := d.pending[path]
	if ok {
		change.timer.Stop()
		// The latest kind wins: created-then-removed reports a deletion,
		// removed-then-recreated is re-checked as a creation.
		change.kind = kind
		change.gen++
	} else {
		change = &pendingChange{kind: kind}
		d.pending[path] = change
	}

	// A superseded timer may already be waiting on d.mu; the generation
	// lets it see that the window was restarted.
	gen := change.gen
	change.timer = time.AfterFunc(d.window, func() { d.fire(path, gen) })
}

func (d *Debouncer) fire(path string, gen uint64) {
	d.mu.Lock()
	change, ok := d.pending[path]
	if !ok || d.stopped || change.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.inFlight.Add(1)
	d.mu.Unlock()

	defer d.inFlight.Done()
	if d.callback != nil {
		d.callback(path, change.kind)
	}
}

// Stop cancels all pending timers and waits for callbacks already running.
// Queued changes are discarded.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for _, change := range d.pending {
		change.timer.Stop()
	}
	d.pending = make(map[string]*pendingChange)
	d.mu.Unlock()

	d.inFlight.Wait()
}
