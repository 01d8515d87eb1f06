// Package events defines all event types used in foldersentinel.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Watch registry events
	EventTypeFolderCreated EventType = "folder_created"
	EventTypeFolderDeleted EventType = "folder_deleted"
	EventTypeWatchError    EventType = "watch_error"

	// Tracker state events
	EventTypeMonitorStateChanged EventType = "monitor_state_changed"
	EventTypeRootsChanged        EventType = "roots_changed"
	EventTypePendingChanged      EventType = "pending_changed"
	EventTypeLogAppended         EventType = "log_appended"
	EventTypeSnapshot            EventType = "snapshot"

	// Connection events
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetRootPath returns the watch root the event belongs to (may be empty).
	GetRootPath() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventTime time.Time   `json:"timestamp"`
	RootPath  string      `json:"root_path,omitempty"`
	Payload   interface{} `json:"payload"`
}

// GetRootPath returns the watch root path.
func (e *BaseEvent) GetRootPath() string {
	return e.RootPath
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewRootEvent creates a new event tagged with the root that produced it.
func NewRootEvent(eventType EventType, payload interface{}, rootPath string) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		RootPath:  rootPath,
		Payload:   payload,
	}
}

// NewHeartbeatEvent creates a heartbeat event for idle connections.
func NewHeartbeatEvent() *BaseEvent {
	return NewEvent(EventTypeHeartbeat, nil)
}
