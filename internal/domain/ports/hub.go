package ports

import (
	"github.com/brianly1003/foldersentinel/internal/domain/events"
)

// Subscriber receives events fanned out by an EventHub.
type Subscriber interface {
	// ID returns a unique identifier for this subscriber.
	ID() string

	// Send delivers an event to this subscriber.
	// Returns error if the subscriber is closed or cannot accept the event.
	Send(event events.Event) error

	// Close closes the subscriber.
	Close() error

	// Done returns a channel that's closed when the subscriber is done.
	Done() <-chan struct{}
}

// EventHub distributes events from producers to every subscriber.
type EventHub interface {
	Start() error
	Stop() error

	// Publish queues an event for every subscriber. It never blocks the producer.
	Publish(event events.Event)

	Subscribe(sub Subscriber)
	Unsubscribe(id string)
	SubscriberCount() int
}
