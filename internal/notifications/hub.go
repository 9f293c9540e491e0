package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"atomvideo/internal/middleware"
	"atomvideo/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000
)

var (
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrServerConnLimit = errors.New("server connection limit reached")
)

// Hub tracks live WebSocket clients per user.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uint]map[*Client]struct{}
	total  int
	closed bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint]map[*Client]struct{})}
}

// Register adds a connection for userID.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errors.New("hub is shut down")
	}
	if h.total >= maxTotalConns {
		return nil, ErrServerConnLimit
	}
	clients, ok := h.conns[userID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.conns[userID] = clients
	}
	if len(clients) >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	c := &Client{hub: h, Conn: conn, UserID: userID, Send: make(chan []byte, sendBuffer)}
	clients[c] = struct{}{}
	h.total++
	observability.WebSocketConnections.Inc()
	return c, nil
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.conns[c.UserID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.conns, c.UserID)
	}
	h.total--
	close(c.Send)
	observability.WebSocketConnections.Dec()
}

// Deliver queues message on every connection of userID.
func (h *Hub) Deliver(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		c.trySend(message)
	}
}

// Connections returns the number of live connections for userID.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Run forwards notifications published through n to local clients until ctx ends.
func (h *Hub) Run(ctx context.Context, n *Notifier) error {
	return n.Subscribe(ctx, func(channel, payload string) {
		userID, err := parseUserChannel(channel)
		if err != nil {
			middleware.Logger.Warn("invalid notification channel", "channel", channel)
			return
		}
		h.Deliver(userID, []byte(payload))
	})
}

// Shutdown closes every client's send channel so write pumps send a close frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, clients := range h.conns {
		for c := range clients {
			close(c.Send)
			observability.WebSocketConnections.Dec()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.total = 0
	return nil
}

func parseUserChannel(channel string) (uint, error) {
	rest, ok := strings.CutPrefix(channel, "notifications:user:")
	if !ok {
		return 0, fmt.Errorf("unexpected channel %q", channel)
	}
	var id uint
	if _, err := fmt.Sscanf(rest, "%d", &id); err != nil || id == 0 {
		return 0, fmt.Errorf("unexpected channel %q", channel)
	}
	return id, nil
}
