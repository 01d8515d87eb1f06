package events

import "github.com/brianly1003/foldersentinel/internal/domain"

// MonitorStatePayload is the payload for monitor_state_changed events.
type MonitorStatePayload struct {
	State domain.MonitorState `json:"state"`
}

// RootsPayload is the payload for roots_changed events.
type RootsPayload struct {
	Roots []domain.WatchRoot `json:"roots"`
}

// PendingPayload is the payload for pending_changed events.
type PendingPayload struct {
	Pending []domain.PendingFolder `json:"pending"`
}

// LogPayload is the payload for log_appended events.
type LogPayload struct {
	Entry domain.LogEntry `json:"entry"`
}

// NewMonitorStateChangedEvent creates a monitor_state_changed event.
func NewMonitorStateChangedEvent(state domain.MonitorState) *BaseEvent {
	return NewEvent(EventTypeMonitorStateChanged, MonitorStatePayload{State: state})
}

// NewRootsChangedEvent creates a roots_changed event carrying the full root list.
func NewRootsChangedEvent(roots []domain.WatchRoot) *BaseEvent {
	return NewEvent(EventTypeRootsChanged, RootsPayload{Roots: roots})
}

// NewPendingChangedEvent creates a pending_changed event carrying the full pending list.
func NewPendingChangedEvent(pending []domain.PendingFolder) *BaseEvent {
	return NewEvent(EventTypePendingChanged, PendingPayload{Pending: pending})
}

// NewLogAppendedEvent creates a log_appended event.
func NewLogAppendedEvent(entry domain.LogEntry) *BaseEvent {
	return NewEvent(EventTypeLogAppended, LogPayload{Entry: entry})
}

// SnapshotPayload is the full tracker state sent to a newly connected client.
type SnapshotPayload struct {
	State   domain.MonitorState    `json:"state"`
	Roots   []domain.WatchRoot     `json:"roots"`
	Pending []domain.PendingFolder `json:"pending"`
	LogSize int                    `json:"log_size"`
}

// NewSnapshotEvent creates a snapshot event.
func NewSnapshotEvent(p SnapshotPayload) *BaseEvent {
	return NewEvent(EventTypeSnapshot, p)
}

// HeartbeatPayload is the payload for heartbeat events sent to live clients.
type HeartbeatPayload struct {
	Sequence      int64               `json:"sequence"`
	MonitorState  domain.MonitorState `json:"monitor_state"`
	PendingCount  int                 `json:"pending_count"`
	UptimeSeconds int64               `json:"uptime_seconds"`
}

// NewStatusHeartbeatEvent creates a heartbeat event carrying tracker status.
func NewStatusHeartbeatEvent(p HeartbeatPayload) *BaseEvent {
	return NewEvent(EventTypeHeartbeat, p)
}
