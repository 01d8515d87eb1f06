// Package http implements the REST API for foldersentinel.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/brianly1003/foldersentinel/internal/adapters/auditlog"
	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/security"
	"github.com/brianly1003/foldersentinel/internal/tracker"
	"github.com/gorilla/mux"
)

// HistoryReader reads audit records persisted by earlier runs.
type HistoryReader interface {
	Recent(limit int) ([]auditlog.Record, error)
}

// Options configures a Server.
type Options struct {
	Host           string
	Port           int
	AllowedOrigins []string

	// DefaultMode and DefaultRetries apply to dispose requests that omit them.
	DefaultMode    domain.DisposalMode
	DefaultRetries int

	// Version is reported by /health.
	Version string
}

// Server is the REST API server. The live event stream is mounted at /ws.
type Server struct {
	opts     Options
	tracker  *tracker.Tracker
	history  HistoryReader
	stream   http.Handler
	logger   *slog.Logger
	started  time.Time
	listener net.Listener

	router     *mux.Router
	httpServer *http.Server
}

// NewServer creates a new API server. history and stream may be nil.
func NewServer(opts Options, t *tracker.Tracker, history HistoryReader, stream http.Handler, logger *slog.Logger) *Server {
	if opts.DefaultMode == "" {
		opts.DefaultMode = domain.ModeTrash
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		tracker: t,
		history: history,
		stream:  stream,
		logger:  logger,
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// Watch roots
	api.HandleFunc("/roots", s.handleListRoots).Methods("GET")
	api.HandleFunc("/roots", s.handleAddRoot).Methods("POST")
	api.HandleFunc("/roots", s.handleRemoveRoot).Methods("DELETE")

	// Monitoring state
	api.HandleFunc("/monitor/start", s.handleStartMonitoring).Methods("POST")
	api.HandleFunc("/monitor/stop", s.handleStopMonitoring).Methods("POST")
	api.HandleFunc("/monitor/toggle", s.handleToggleMonitoring).Methods("POST")

	// Pending folders
	api.HandleFunc("/pending", s.handleListPending).Methods("GET")
	api.HandleFunc("/pending/clear", s.handleClearPending).Methods("POST")
	api.HandleFunc("/pending/dispose", s.handleDispose).Methods("POST")

	// Session log and audit history
	api.HandleFunc("/logs", s.handleLogs).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	if s.stream != nil {
		router.Handle("/ws", s.stream)
	}

	return router
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = corsMiddleware(security.NewOriginPolicy(s.opts.AllowedOrigins), handler)
	handler = s.requestLoggingMiddleware(handler)
	return handler
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	// Write timeout stays unset so /ws connections are not cut off.
	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	s.logger.Info("HTTP server starting", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("HTTP server stopping")
	return s.httpServer.Shutdown(ctx)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError sends an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError maps a tracker error to a status code.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidPayload, err.Error())
		return
	}
	if errors.Is(err, domain.ErrTrackerClosed) {
		s.respondError(w, http.StatusServiceUnavailable, domain.ErrCodeInternalError, err.Error())
		return
	}

	code := domain.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case domain.ErrCodeRootNotFound:
		status = http.StatusNotFound
	case domain.ErrCodeNotDirectory:
		status = http.StatusBadRequest
	case domain.ErrCodeRootExists, domain.ErrCodeNoRoots, domain.ErrCodeNothingPending:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}
	s.respondError(w, status, code, err.Error())
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

// corsMiddleware answers preflight requests and echoes allowed origins.
func corsMiddleware(policy *security.OriginPolicy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
		case policy.AllowsAny():
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case policy.Allowed(origin, r.Host):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
