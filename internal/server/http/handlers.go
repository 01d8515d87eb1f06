package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/tracker"
)

const (
	defaultHistoryLimit = 100
	maxBodyBytes        = 64 * 1024
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "foldersentinel",
		Version:   s.opts.Version,
		Timestamp: time.Now().Unix(),
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.tracker.Snapshot()
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, StatusResponse{
		State:         snap.State,
		RootCount:     len(snap.Roots),
		PendingCount:  len(snap.Pending),
		LogSize:       snap.LogSize,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

// handleListRoots handles GET /api/roots
func (s *Server) handleListRoots(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, RootsResponse{Roots: nonNil(s.tracker.Roots())})
}

// handleAddRoot handles POST /api/roots
func (s *Server) handleAddRoot(w http.ResponseWriter, r *http.Request) {
	var req RootRequest
	if !s.decodeBody(w, r, &req, false) {
		return
	}
	if err := s.tracker.AddRoot(req.Path); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, RootsResponse{Roots: nonNil(s.tracker.Roots())})
}

// handleRemoveRoot handles DELETE /api/roots?path=... or a JSON body.
func (s *Server) handleRemoveRoot(w http.ResponseWriter, r *http.Request) {
	req := RootRequest{Path: r.URL.Query().Get("path")}
	if req.Path == "" && !s.decodeBody(w, r, &req, false) {
		return
	}
	if err := s.tracker.RemoveRoot(req.Path); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, RootsResponse{Roots: nonNil(s.tracker.Roots())})
}

// handleStartMonitoring handles POST /api/monitor/start
func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	s.monitorCommand(w, s.tracker.StartMonitoring)
}

// handleStopMonitoring handles POST /api/monitor/stop
func (s *Server) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	s.monitorCommand(w, s.tracker.StopMonitoring)
}

// handleToggleMonitoring handles POST /api/monitor/toggle
func (s *Server) handleToggleMonitoring(w http.ResponseWriter, r *http.Request) {
	s.monitorCommand(w, s.tracker.Toggle)
}

func (s *Server) monitorCommand(w http.ResponseWriter, cmd func() error) {
	if err := cmd(); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, MonitorResponse{State: s.tracker.State()})
}

// handleListPending handles GET /api/pending
func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, PendingResponse{Pending: nonNil(s.tracker.Pending())})
}

// handleClearPending handles POST /api/pending/clear
func (s *Server) handleClearPending(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.ClearPending(); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, PendingResponse{Pending: []domain.PendingFolder{}})
}

// handleDispose handles POST /api/pending/dispose. An aborted run is still
// a 200; the result carries the failed item.
func (s *Server) handleDispose(w http.ResponseWriter, r *http.Request) {
	var req DisposeRequest
	if !s.decodeBody(w, r, &req, true) {
		return
	}

	mode := s.opts.DefaultMode
	if req.Mode != "" {
		parsed, err := domain.ParseDisposalMode(req.Mode)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}
		mode = parsed
	}

	retries := s.opts.DefaultRetries
	if req.Retries != nil {
		if *req.Retries < 0 {
			s.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, "retries cannot be negative")
			return
		}
		retries = *req.Retries
	}

	result, err := s.tracker.DisposeAll(mode, tracker.RetryUpTo(retries))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if result.Disposed == nil {
		result.Disposed = []domain.PendingFolder{}
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleLogs handles GET /api/logs?since=N
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	since, ok := s.intParam(w, r, "since", 0)
	if !ok {
		return
	}
	entries := nonNil(s.tracker.Logs(since))
	next := since
	if n := len(entries); n > 0 {
		next = entries[n-1].Seq
	}
	s.respondJSON(w, http.StatusOK, LogsResponse{Entries: entries, Next: next})
}

// handleHistory handles GET /api/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotFound, domain.ErrCodeInternalError, "audit log is disabled")
		return
	}
	limit, ok := s.intParam(w, r, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	records, err := s.history.Recent(limit)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, HistoryResponse{Records: nonNil(records)})
}

// decodeBody decodes a JSON body into v. An empty body is accepted only
// when optional is set.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || (optional && err == io.EOF) {
		return true
	}
	s.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, "invalid request body")
	return false
}

// intParam reads a non-negative integer query parameter.
func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
