package http

import (
	"github.com/brianly1003/foldersentinel/internal/adapters/auditlog"
	"github.com/brianly1003/foldersentinel/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	State         domain.MonitorState `json:"state"`
	RootCount     int                 `json:"root_count"`
	PendingCount  int                 `json:"pending_count"`
	LogSize       int                 `json:"log_size"`
	UptimeSeconds int64               `json:"uptime_seconds"`
}

// RootRequest is the body of POST and DELETE /api/roots.
type RootRequest struct {
	Path string `json:"path"`
}

// RootsResponse lists the watch roots.
type RootsResponse struct {
	Roots []domain.WatchRoot `json:"roots"`
}

// MonitorResponse reports the monitoring state after a state command.
type MonitorResponse struct {
	State domain.MonitorState `json:"state"`
}

// PendingResponse lists the pending folders.
type PendingResponse struct {
	Pending []domain.PendingFolder `json:"pending"`
}

// DisposeRequest is the body of POST /api/pending/dispose. Omitted fields
// fall back to the configured defaults.
type DisposeRequest struct {
	Mode    string `json:"mode,omitempty"`
	Retries *int   `json:"retries,omitempty"`
}

// LogsResponse carries session log entries after a cursor. Next is the
// cursor for the following request.
type LogsResponse struct {
	Entries []domain.LogEntry `json:"entries"`
	Next    int               `json:"next"`
}

// HistoryResponse carries persisted audit records.
type HistoryResponse struct {
	Records []auditlog.Record `json:"records"`
}
