package notify

import (
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"token-board/internal/domain"
	"token-board/internal/observability"
)

// HubConfig configures the WebSocket hub.
type HubConfig struct {
	// SendBuffer is the per-connection queue length. A full queue drops the connection.
	SendBuffer int
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is the interval for keepalive pings.
	PingInterval time.Duration
	// ReadTimeout is how long a connection may stay silent (pongs included).
	ReadTimeout time.Duration
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:   64,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}

// Hub is the set of open WebSocket connections. It implements Observer and
// http.Handler: ServeHTTP upgrades a request and registers the connection.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. A nil logger logs to stdout with a [hub] prefix.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[hub] ", log.LstdFlags|log.Lshortfile)
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// ServeHTTP upgrades the request to a WebSocket connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Printf("client connected: id=%s remote=%s", c.id, r.RemoteAddr)

	go h.writePump(c)
	go h.readPump(c)
}

// Notify queues update on every connection. Connections with a full queue are dropped.
func (h *Hub) Notify(update domain.VoteUpdate) {
	msg, err := EncodeUpdate(update)
	if err != nil {
		h.logger.Printf("encode update: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, id)
			close(c.send)
			observability.RecordBroadcastDropped("websocket")
			h.logger.Printf("client too slow, dropping: id=%s", id)
		}
	}
	observability.UpdateWebSocketConnections(len(h.clients))
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	observability.UpdateWebSocketConnections(0)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c.id] = c
	observability.UpdateWebSocketConnections(len(h.clients))
	return true
}

// unregister removes c if still present. It reports whether c was removed.
func (h *Hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	delete(h.clients, c.id)
	close(c.send)
	observability.UpdateWebSocketConnections(len(h.clients))
	return true
}

// writePump sends queued messages and pings until the queue is closed.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Printf("write to %s: %v", c.id, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and unregisters the client on error.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Printf("client disconnected: id=%s", c.id)
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Printf("read from %s: %v", c.id, err)
			}
			return
		}
	}
}

var _ Observer = (*Hub)(nil)
