// Package hub implements the central event hub for foldersentinel.
package hub

import (
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/brianly1003/foldersentinel/internal/sync"
	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is the broadcast queue length used by New.
const DefaultBufferSize = 256

// Hub is the central event dispatcher that fans out events to all subscribers.
type Hub struct {
	// subscribers holds all active subscribers
	subscribers map[string]ports.Subscriber

	// broadcast channel receives events to be broadcast
	broadcast chan events.Event

	register   chan ports.Subscriber
	unregister chan string

	// mu protects subscribers map and running
	mu sync.RWMutex

	done    chan struct{}
	running bool
}

// New creates a new Hub with the default broadcast buffer.
func New() *Hub {
	return NewWithBuffer(DefaultBufferSize)
}

// NewWithBuffer creates a new Hub whose broadcast queue holds size events.
func NewWithBuffer(size int) *Hub {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, size),
		register:    make(chan ports.Subscriber),
		unregister:  make(chan string),
		done:        make(chan struct{}),
	}
}

// Start begins the hub's main loop.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	log.Debug().Int("buffer", cap(h.broadcast)).Msg("event hub started")

	go h.run()
	return nil
}

// Stop gracefully stops the hub and closes every subscriber.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.mu.Unlock()

	close(h.done)

	h.mu.Lock()
	for _, sub := range h.subscribers {
		_ = sub.Close()
	}
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	log.Debug().Msg("event hub stopped")
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.ID()] = sub
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")

		case id := <-h.unregister:
			h.mu.Lock()
			if sub, ok := h.subscribers[id]; ok {
				_ = sub.Close()
				delete(h.subscribers, id)
			}
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", id).
				Str("event_type", string(event.Type())).
				Err(err).
				Msg("failed to send event to subscriber")
			// Queue unregister without blocking the loop
			go func(subID string) {
				select {
				case h.unregister <- subID:
				case <-h.done:
				}
			}(id)
		}
	}
}

// Publish queues an event for every subscriber. When the broadcast queue is
// full it waits for the loop to catch up, so a burst of folder changes slows
// the producer instead of losing events. Events published while the hub is
// not running are dropped.
func (h *Hub) Publish(event events.Event) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		log.Warn().
			Str("event_type", string(event.Type())).
			Str("root", event.GetRootPath()).
			Msg("event dropped: hub not running")
		return
	}

	select {
	case h.broadcast <- event:
		log.Trace().
			Str("event_type", string(event.Type())).
			Str("root", event.GetRootPath()).
			Msg("event published")
		return
	default:
	}

	log.Debug().
		Str("event_type", string(event.Type())).
		Int("queued", len(h.broadcast)).
		Msg("broadcast queue full, waiting")

	select {
	case h.broadcast <- event:
	case <-h.done:
		log.Warn().
			Str("event_type", string(event.Type())).
			Str("root", event.GetRootPath()).
			Msg("event dropped: hub stopped")
	}
}

// Subscribe adds a new subscriber.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	select {
	case h.register <- sub:
	case <-h.done:
	}
}

// Unsubscribe removes a subscriber by ID.
func (h *Hub) Unsubscribe(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

var _ ports.EventHub = (*Hub)(nil)
