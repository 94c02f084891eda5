package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"token-board/internal/domain"
)

// WatcherConfig configures the WebSocket watcher client.
type WatcherConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is how long the connection may stay silent, pings included.
	ReadTimeout time.Duration
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       90 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Watcher subscribes to a board's /ws endpoint and reconnects with
// exponential backoff until its context is cancelled.
type Watcher struct {
	endpoint string
	config   WatcherConfig
	logger   *log.Logger

	connects atomic.Int64
}

// NewWatcher creates a Watcher for endpoint (ws:// or wss:// URL).
func NewWatcher(endpoint string, config *WatcherConfig, logger *log.Logger) *Watcher {
	cfg := DefaultWatcherConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile)
	}
	return &Watcher{endpoint: endpoint, config: cfg, logger: logger}
}

// Run delivers every voteUpdate to handle. It returns ctx.Err() when ctx is done.
func (w *Watcher) Run(ctx context.Context, handle func(domain.VoteUpdate)) error {
	delay := w.config.ReconnectDelay

	for {
		err := w.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var dialErr *dialError
		if errors.As(err, &dialErr) {
			delay = min(delay*2, w.config.MaxReconnectDelay)
		} else {
			// Connected and later lost: start the backoff over.
			delay = w.config.ReconnectDelay
		}
		w.logger.Printf("connection lost: %v; reconnecting in %s", err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

type dialError struct{ err error }

func (e *dialError) Error() string { return fmt.Sprintf("websocket dial: %v", e.err) }
func (e *dialError) Unwrap() error { return e.err }

// session runs one connection until it fails or ctx is done.
func (w *Watcher) session(ctx context.Context, handle func(domain.VoteUpdate)) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return &dialError{err: err}
	}
	defer conn.Close()

	w.connects.Add(1)
	w.logger.Printf("connected to %s", w.endpoint)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			w.logger.Printf("skip malformed message: %v", err)
			continue
		}
		if msg.Event != domain.VoteUpdateEvent {
			continue
		}
		handle(msg.Data)
	}
}
