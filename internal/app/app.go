// Package app orchestrates all components of foldersentinel.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianly1003/foldersentinel/internal/adapters/auditlog"
	"github.com/brianly1003/foldersentinel/internal/adapters/disposal"
	"github.com/brianly1003/foldersentinel/internal/adapters/rootstore"
	"github.com/brianly1003/foldersentinel/internal/adapters/watcher"
	"github.com/brianly1003/foldersentinel/internal/config"
	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/brianly1003/foldersentinel/internal/hub"
	httpserver "github.com/brianly1003/foldersentinel/internal/server/http"
	"github.com/brianly1003/foldersentinel/internal/server/websocket"
	"github.com/brianly1003/foldersentinel/internal/sync"
	"github.com/brianly1003/foldersentinel/internal/tracker"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string
	logger  *slog.Logger

	// Core components
	hub        *hub.Hub
	registry   *watcher.Registry
	tracker    *tracker.Tracker
	audit      *auditlog.Store
	wsServer   *websocket.Server
	httpServer *httpserver.Server

	cancelTracker context.CancelFunc
	trackerDone   chan struct{}
	startTime     time.Time

	// Lifecycle
	mu      sync.Mutex
	running bool
}

// New creates a new App instance. logger is used by the HTTP server; nil
// falls back to slog's default.
func New(cfg *config.Config, version string, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		version: version,
		logger:  logger,
		hub:     hub.NewWithBuffer(cfg.Hub.BufferSize),
	}, nil
}

// Start starts the application and blocks until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.start(); err != nil {
		a.shutdown()
		return err
	}

	<-ctx.Done()

	a.shutdown()
	return nil
}

func (a *App) start() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	// Start event hub
	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	logSub := hub.NewFuncSubscriber("event-trace", func(event events.Event) {
		log.Trace().
			Str("event_type", string(event.Type())).
			Str("root", event.GetRootPath()).
			Time("timestamp", event.Timestamp()).
			Msg("event broadcast")
	})
	a.hub.Subscribe(logSub)

	// Watch registry
	debounce := time.Duration(a.cfg.Watcher.DebounceMS) * time.Millisecond
	a.registry = watcher.NewRegistry(a.hub, debounce).
		WithIgnore(config.IgnoreMatcher(a.cfg.Watcher.IgnorePatterns))

	// Audit log
	var audit ports.AuditSink
	if a.cfg.Audit.Enabled {
		store, err := auditlog.Open(a.cfg.Audit.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", a.cfg.Audit.Path).Msg("audit log unavailable, continuing without it")
		} else {
			a.audit = store
			audit = store
			log.Info().Str("path", store.Path()).Str("run_id", store.RunID()).Msg("audit log opened")
		}
	}

	// Tracker
	tr := tracker.New(tracker.Options{
		Hub:      a.hub,
		Registry: a.registry,
		Disposer: disposal.New(a.cfg.Disposal.TrashDir),
		Store:    rootstore.New(a.cfg.Roots.File),
		Audit:    audit,
	})
	trackerCtx, cancelTracker := context.WithCancel(context.Background())
	a.trackerDone = make(chan struct{})
	go func() {
		defer close(a.trackerDone)
		if err := tr.Run(trackerCtx); err != nil {
			log.Error().Err(err).Msg("tracker stopped")
		}
	}()
	a.mu.Lock()
	a.tracker = tr
	a.cancelTracker = cancelTracker
	a.mu.Unlock()

	_ = a.tracker.LoadRoots()
	if a.cfg.Roots.AutoStart && len(a.tracker.Roots()) > 0 {
		_ = a.tracker.StartMonitoring()
	}

	// Servers
	if a.cfg.Server.Enabled {
		a.wsServer = websocket.NewServer(a.hub, a.tracker, a.cfg.Server.AllowedOrigins)
		a.wsServer.Start()

		var history httpserver.HistoryReader
		if a.audit != nil {
			history = a.audit
		}
		api := httpserver.NewServer(httpserver.Options{
			Host:           a.cfg.Server.Host,
			Port:           a.cfg.Server.Port,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
			DefaultMode:    domain.DisposalMode(a.cfg.Disposal.DefaultMode),
			DefaultRetries: a.cfg.Disposal.DefaultRetries,
			Version:        a.version,
		}, a.tracker, history, a.wsServer, a.logger)
		if err := api.Start(); err != nil {
			return err
		}
		a.mu.Lock()
		a.httpServer = api
		a.mu.Unlock()
	}

	log.Info().
		Str("version", a.version).
		Str("state", string(a.tracker.State())).
		Int("roots", len(a.tracker.Roots())).
		Msg("foldersentinel started")

	return nil
}

func (a *App) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.running = false

	log.Info().Msg("shutting down...")

	// Stop servers first so no command races the teardown
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.httpServer.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("error stopping HTTP server")
		}
		cancel()
	}
	if a.wsServer != nil {
		a.wsServer.Stop()
	}

	if a.tracker != nil {
		_ = a.tracker.StopMonitoring()
		_ = a.tracker.SaveRoots()
	}
	if a.cancelTracker != nil {
		a.cancelTracker()
		<-a.trackerDone
	}

	if a.registry != nil {
		a.registry.Stop()
	}

	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			log.Error().Err(err).Msg("error closing audit log")
		}
	}

	if err := a.hub.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping event hub")
	}
}

// Running reports whether the application has started and not yet shut down.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running && a.tracker != nil && (!a.cfg.Server.Enabled || a.httpServer != nil)
}

// Tracker returns the pending-folder tracker once started.
func (a *App) Tracker() *tracker.Tracker {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tracker
}

// HTTPAddr returns the bound API address, or "" when the server is disabled.
func (a *App) HTTPAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer == nil {
		return ""
	}
	return a.httpServer.Addr()
}

// UptimeSeconds returns the number of seconds since Start.
func (a *App) UptimeSeconds() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.startTime.IsZero() {
		return 0
	}
	return int64(time.Since(a.startTime).Seconds())
}
