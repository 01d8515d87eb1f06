// Package websocket streams tracker events to live clients.
//
// Each connection is a Client with its own read and write pumps. The client
// is registered on the event hub through a root filter that the peer can
// narrow with small JSON commands:
//
//	{"action":"subscribe_root","root":"/data/inbox"}
//	{"action":"unsubscribe_root","root":"/data/inbox"}
//	{"action":"subscribe_all"}
//
// Send is safe to call from any goroutine and Close may be called more than
// once.
package websocket

import (
	"time"

	"github.com/brianly1003/foldersentinel/internal/sync"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// CommandHandler handles a raw message received from a client.
type CommandHandler func(clientID string, message []byte)

// Client is a single WebSocket connection.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	done           chan struct{}
	commandHandler CommandHandler
	onClose        func(id string)

	mu      sync.Mutex
	closed  bool
	held    bool
	backlog [][]byte
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, commandHandler CommandHandler, onClose func(id string)) *Client {
	return &Client{
		id:             uuid.New().String(),
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		commandHandler: commandHandler,
		onClose:        onClose,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Start starts the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Hold queues later messages in a backlog until Release is called.
func (c *Client) Hold() {
	c.mu.Lock()
	c.held = true
	c.mu.Unlock()
}

// Release queues first, then everything sent while held, and resumes
// normal delivery. A nil first is skipped. Sends that race with Release
// are queued after the backlog.
func (c *Client) Release(first []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if first != nil {
		c.enqueue(first)
	}
	for _, message := range c.backlog {
		c.enqueue(message)
	}
	c.backlog = nil
	c.held = false
}

// Send queues a message for the client. Messages for a slow client are
// dropped once its buffer is full.
func (c *Client) Send(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.held {
		c.backlog = append(c.backlog, message)
		return
	}
	c.enqueue(message)
}

// enqueue must be called with c.mu held; it never blocks.
func (c *Client) enqueue(message []byte) {
	select {
	case c.send <- message:
	default:
		log.Warn().Str("client_id", c.id).Msg("client send channel full, dropping message")
	}
}

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops both pumps and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}

		if c.commandHandler != nil {
			c.commandHandler(c.id, message)
		}
	}
}

// writePump writes one frame per queued message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("write error")
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("ping error")
				c.Close()
				return
			}
		}
	}
}
