// Package watcher implements the watch registry using fsnotify.
package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/brianly1003/foldersentinel/internal/sync"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// rootWatch is the live subscription backing one root.
type rootWatch struct {
	root      string
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	done      chan struct{}
	loopDone  chan struct{}
}

// Registry implements the WatchRegistry port. Each root owns its own
// fsnotify watcher, so a failing root never affects the others.
type Registry struct {
	hub      ports.EventHub
	debounce time.Duration

	// newWatcher is swapped in tests to simulate establishment failures.
	newWatcher func() (*fsnotify.Watcher, error)

	// ignore reports child names that are never reported.
	ignore func(name string) bool

	mu      sync.Mutex
	watches map[string]*rootWatch
	running bool
}

// NewRegistry creates a registry publishing to hub. A zero debounce
// forwards every notification as soon as it is observed.
func NewRegistry(hub ports.EventHub, debounce time.Duration) *Registry {
	return &Registry{
		hub:        hub,
		debounce:   debounce,
		newWatcher: fsnotify.NewWatcher,
		watches:    make(map[string]*rootWatch),
	}
}

// WithIgnore sets a filter for child names, such as operating system
// housekeeping directories. It must be called before any watch is established.
func (r *Registry) WithIgnore(ignore func(name string) bool) *Registry {
	r.ignore = ignore
	return r
}

// Start establishes a watch for every root. It is a no-op when running.
func (r *Registry) Start(roots []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	added := false
	for _, root := range roots {
		if r.addLocked(root) {
			added = true
		}
	}
	r.running = added

	log.Info().
		Int("requested", len(roots)).
		Int("watched", len(r.watches)).
		Bool("running", r.running).
		Msg("watch registry started")
}

// Stop tears down every watch.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for root, w := range r.watches {
		w.close()
		delete(r.watches, root)
	}
	r.running = false

	log.Info().Msg("watch registry stopped")
}

// AddWatchFolder establishes a watch for a single root.
func (r *Registry) AddWatchFolder(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.addLocked(path) {
		return false
	}
	r.running = true
	return true
}

// RemoveWatchFolder tears down the watch for exactly that root.
func (r *Registry) RemoveWatchFolder(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	root := filepath.Clean(path)
	w, ok := r.watches[root]
	if !ok {
		return false
	}

	w.close()
	delete(r.watches, root)
	r.running = len(r.watches) > 0

	log.Info().Str("root", root).Msg("watch removed")
	return true
}

// IsRunning returns true while at least one watch is live.
func (r *Registry) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// WatchedRoots returns the watched roots in lexical order.
func (r *Registry) WatchedRoots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	roots := make([]string, 0, len(r.watches))
	for root := range r.watches {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// addLocked must be called with r.mu held.
func (r *Registry) addLocked(path string) bool {
	root := filepath.Clean(path)

	if _, ok := r.watches[root]; ok {
		return false
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		log.Debug().Str("root", root).Msg("skipping watch: not an existing directory")
		return false
	}

	fsw, err := r.newWatcher()
	if err != nil {
		r.reportError(root, err)
		return false
	}

	// fsnotify watches are not recursive: only direct children are reported.
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		r.reportError(root, err)
		return false
	}

	w := &rootWatch{
		root:     root,
		fsw:      fsw,
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	if r.debounce > 0 {
		w.debouncer = NewDebouncer(r.debounce, func(p string, kind changeKind) {
			r.emit(root, p, kind)
		})
	}
	r.watches[root] = w

	go r.eventLoop(w)

	log.Info().Str("root", root).Dur("debounce", r.debounce).Msg("watch established")
	return true
}

func (r *Registry) eventLoop(w *rootWatch) {
	defer close(w.loopDone)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			r.handleEvent(w, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Overflow or an invalidated handle. The watch is left as is;
			// the operator removes and re-adds the root to recover.
			r.reportError(w.root, err)
		}
	}
}

func (r *Registry) handleEvent(w *rootWatch, event fsnotify.Event) {
	name := filepath.Clean(event.Name)

	if name == w.root {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			r.reportError(w.root, domain.ErrRootRemoved)
		}
		return
	}
	if filepath.Dir(name) != w.root {
		return
	}
	if r.ignore != nil && r.ignore(filepath.Base(name)) {
		return
	}

	var kind changeKind
	switch {
	case event.Has(fsnotify.Create):
		kind = changeCreated
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		kind = changeDeleted
	default:
		// Write and Chmod concern content or attributes, not names
		return
	}

	if w.debouncer != nil {
		w.debouncer.Add(name, kind)
		return
	}
	r.emit(w.root, name, kind)
}

// emit publishes the tagged event for a child change.
func (r *Registry) emit(root, path string, kind changeKind) {
	switch kind {
	case changeCreated:
		// Only entries that are still directories at observation time count
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			log.Trace().Str("path", path).Msg("ignoring created entry: not a directory")
			return
		}
		r.hub.Publish(events.NewFolderCreatedEvent(path, root))

	case changeDeleted:
		// Removal notifications carry no type information
		r.hub.Publish(events.NewFolderDeletedEvent(path, root))
	}

	log.Debug().
		Str("root", root).
		Str("path", path).
		Str("change", kind.String()).
		Msg("child entry changed")
}

func (r *Registry) reportError(root string, err error) {
	log.Warn().Err(err).Str("root", root).Msg("watch error")
	r.hub.Publish(events.NewWatchErrorEvent(root, err))
}

// close tears the watch down. When it returns nothing more is published
// for the root.
func (w *rootWatch) close() {
	close(w.done)
	if err := w.fsw.Close(); err != nil {
		log.Warn().Err(err).Str("root", w.root).Msg("failed to close watch")
	}
	<-w.loopDone
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
}

var _ ports.WatchRegistry = (*Registry)(nil)
