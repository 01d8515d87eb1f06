package websocket

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/brianly1003/foldersentinel/internal/hub"
	"github.com/brianly1003/foldersentinel/internal/security"
	"github.com/brianly1003/foldersentinel/internal/sync"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 90 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Send buffer size per client.
	sendBufferSize = 1024

	// DefaultHeartbeatInterval is the application-level heartbeat period.
	DefaultHeartbeatInterval = 30 * time.Second
)

// StatusProvider supplies the state sent to new clients and with heartbeats.
type StatusProvider interface {
	Snapshot() (events.SnapshotPayload, error)
}

// Command is a filter command sent by a client.
type Command struct {
	Action string `json:"action"`
	Root   string `json:"root,omitempty"`
}

// Server upgrades HTTP requests to WebSocket connections and fans hub
// events out to them. It is mounted on the HTTP router rather than
// listening on its own.
type Server struct {
	hub      ports.EventHub
	status   StatusProvider
	upgrader websocket.Upgrader

	heartbeatInterval time.Duration

	mu      sync.RWMutex
	clients map[string]*Client
	filters map[string]*hub.FilteredSubscriber

	heartbeatDone chan struct{}
	stopOnce      sync.Once
	heartbeatSeq  int64
	startTime     time.Time
}

// NewServer creates a new WebSocket server. Origins are checked with
// security.OriginPolicy.
func NewServer(eventHub ports.EventHub, status StatusProvider, allowedOrigins []string) *Server {
	s := &Server{
		hub:               eventHub,
		status:            status,
		heartbeatInterval: DefaultHeartbeatInterval,
		clients:           make(map[string]*Client),
		filters:           make(map[string]*hub.FilteredSubscriber),
		heartbeatDone:     make(chan struct{}),
		startTime:         time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     security.NewOriginPolicy(allowedOrigins).CheckOrigin,
	}
	return s
}

// SetHeartbeatInterval overrides the heartbeat period. Call before Start.
func (s *Server) SetHeartbeatInterval(d time.Duration) {
	s.heartbeatInterval = d
}

// Start starts the heartbeat broadcaster.
func (s *Server) Start() {
	go s.heartbeatLoop()
}

// Stop stops the heartbeat and closes every client.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.heartbeatDone)

		s.mu.Lock()
		clients := make([]*Client, 0, len(s.clients))
		for _, client := range s.clients {
			clients = append(clients, client)
		}
		s.mu.Unlock()

		for _, client := range clients {
			client.Close()
		}
		log.Info().Int("clients", len(clients)).Msg("WebSocket server stopped")
	})
}

// ServeHTTP handles WebSocket upgrade requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, s.handleCommand, func(id string) {
		s.hub.Unsubscribe(id)
		s.removeClient(id)
	})
	filter := hub.NewFilteredSubscriber(NewClientSubscriber(client))

	s.mu.Lock()
	s.filters[client.ID()] = filter
	s.mu.Unlock()

	// Subscribe before the snapshot so no change between the two is missed.
	// Events that arrive meanwhile are held until the snapshot is queued, and
	// the client joins heartbeat broadcasts only after that.
	client.Hold()
	s.hub.Subscribe(filter)
	client.Release(s.snapshotMessage(client))

	s.mu.Lock()
	s.clients[client.ID()] = client
	s.mu.Unlock()

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()
}

func (s *Server) snapshotMessage(client *Client) []byte {
	if s.status == nil {
		return nil
	}
	snap, err := s.status.Snapshot()
	if err != nil {
		log.Warn().Err(err).Str("client_id", client.ID()).Msg("failed to build snapshot")
		return nil
	}
	data, err := events.NewSnapshotEvent(snap).ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize snapshot")
		return nil
	}
	return data
}

func (s *Server) handleCommand(clientID string, message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Debug().Err(err).Str("client_id", clientID).Msg("ignoring malformed command")
		return
	}

	s.mu.RLock()
	filter := s.filters[clientID]
	s.mu.RUnlock()
	if filter == nil {
		return
	}

	switch cmd.Action {
	case "subscribe_root":
		filter.SubscribeRoot(cmd.Root)
	case "unsubscribe_root":
		filter.UnsubscribeRoot(cmd.Root)
	case "subscribe_all":
		filter.SubscribeAll()
	default:
		log.Debug().Str("client_id", clientID).Str("action", cmd.Action).Msg("unknown command")
		return
	}
	log.Debug().Str("client_id", clientID).Str("action", cmd.Action).Str("root", cmd.Root).Msg("client filter updated")
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	delete(s.filters, id)
	s.mu.Unlock()
	log.Info().Str("client_id", id).Msg("client disconnected")
}

// Broadcast sends a message to all connected clients.
func (s *Server) Broadcast(message []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		client.Send(message)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.heartbeatDone:
			return
		case <-ticker.C:
			s.broadcastHeartbeat()
		}
	}
}

func (s *Server) broadcastHeartbeat() {
	if s.ClientCount() == 0 {
		return
	}

	payload := events.HeartbeatPayload{
		Sequence:      atomic.AddInt64(&s.heartbeatSeq, 1),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	if s.status != nil {
		if snap, err := s.status.Snapshot(); err == nil {
			payload.MonitorState = snap.State
			payload.PendingCount = len(snap.Pending)
		}
	}

	data, err := events.NewStatusHeartbeatEvent(payload).ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize heartbeat")
		return
	}

	s.Broadcast(data)
	log.Trace().Int64("seq", payload.Sequence).Msg("heartbeat sent")
}
