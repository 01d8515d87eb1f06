package hub

import (
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/brianly1003/foldersentinel/internal/sync"
)

// FilteredSubscriber wraps a subscriber and forwards only events whose type
// and root pass the filter. An empty type or root set forwards everything
// on that axis. Events without a root are never blocked by the root filter.
type FilteredSubscriber struct {
	inner ports.Subscriber

	mu    sync.RWMutex
	types map[events.EventType]bool
	roots map[string]bool
}

// NewFilteredSubscriber creates a new filtered subscriber wrapping the given
// subscriber, optionally restricted to the given event types.
func NewFilteredSubscriber(inner ports.Subscriber, types ...events.EventType) *FilteredSubscriber {
	f := &FilteredSubscriber{
		inner: inner,
		types: make(map[events.EventType]bool),
		roots: make(map[string]bool),
	}
	for _, t := range types {
		f.types[t] = true
	}
	return f
}

// ID returns the subscriber's unique identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send sends an event to the subscriber if it passes the filter.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if !f.shouldForward(event) {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns a channel that's closed when the subscriber is done.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}

// SubscribeType adds an event type to the filter.
func (f *FilteredSubscriber) SubscribeType(t events.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types[t] = true
}

// SubscribeRoot restricts root-tagged events to the given roots.
func (f *FilteredSubscriber) SubscribeRoot(root string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roots[root] = true
}

// UnsubscribeRoot removes a root from the filter.
func (f *FilteredSubscriber) UnsubscribeRoot(root string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.roots, root)
}

// SubscribeAll clears both filters, forwarding all events.
func (f *FilteredSubscriber) SubscribeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = make(map[events.EventType]bool)
	f.roots = make(map[string]bool)
}

// IsFiltering returns true if any filter is active.
func (f *FilteredSubscriber) IsFiltering() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.types) > 0 || len(f.roots) > 0
}

func (f *FilteredSubscriber) shouldForward(event events.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.types) > 0 && !f.types[event.Type()] {
		return false
	}

	root := event.GetRootPath()
	if len(f.roots) == 0 || root == "" {
		return true
	}
	return f.roots[root]
}
