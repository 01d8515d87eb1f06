package hub

import (
	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/sync"
)

// QueueSubscriber is an unbounded single-consumer mailbox. Send never blocks
// and never drops; the consumer waits on Ready and drains with Drain.
type QueueSubscriber struct {
	id    string
	ready chan struct{}
	done  chan struct{}

	mu     sync.Mutex
	queue  []events.Event
	closed bool
}

// NewQueueSubscriber creates a new mailbox subscriber.
func NewQueueSubscriber(id string) *QueueSubscriber {
	return &QueueSubscriber{
		id:    id,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *QueueSubscriber) ID() string {
	return s.id
}

// Send appends the event to the mailbox.
func (s *QueueSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSubscriberClosed
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return nil
}

// Ready is signalled whenever the mailbox goes from empty to non-empty.
func (s *QueueSubscriber) Ready() <-chan struct{} {
	return s.ready
}

// Drain removes and returns every queued event in arrival order.
func (s *QueueSubscriber) Drain() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	out := s.queue
	s.queue = nil
	return out
}

// Len returns the number of queued events.
func (s *QueueSubscriber) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close closes the subscriber. Queued events stay drainable.
func (s *QueueSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *QueueSubscriber) Done() <-chan struct{} {
	return s.done
}

// FuncSubscriber hands each event to a callback on the hub goroutine. The
// callback must not block; it is meant for trace logging of the event stream.
type FuncSubscriber struct {
	id        string
	fn        func(event events.Event)
	done      chan struct{}
	closeOnce sync.Once
}

// NewFuncSubscriber wraps fn as a subscriber. A nil fn discards events.
func NewFuncSubscriber(id string, fn func(event events.Event)) *FuncSubscriber {
	return &FuncSubscriber{id: id, fn: fn, done: make(chan struct{})}
}

func (s *FuncSubscriber) ID() string { return s.id }

func (s *FuncSubscriber) Send(event events.Event) error {
	select {
	case <-s.done:
		return domain.ErrSubscriberClosed
	default:
	}
	if s.fn != nil {
		s.fn(event)
	}
	return nil
}

func (s *FuncSubscriber) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *FuncSubscriber) Done() <-chan struct{} { return s.done }
