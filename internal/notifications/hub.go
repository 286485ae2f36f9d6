package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"jeevandhara/internal/middleware"
	"jeevandhara/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerRecipient = 8
	maxTotalConns        = 10000
)

var (
	ErrHubFull       = errors.New("server connection limit reached")
	ErrRecipientFull = errors.New("connection limit reached for this account")
	ErrHubClosed     = errors.New("hub is shutting down")
)

// Hub maps each recipient to its open websocket clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[Recipient]map[*Client]struct{}
	totalConns int
	closed     bool
	log        *observability.WSLogger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[Recipient]map[*Client]struct{}),
		log:   observability.NewWSLogger("notification hub"),
	}
}

// Name identifies the hub in metrics and logs.
func (h *Hub) Name() string { return "notification hub" }

// Register attaches a connection for to.
func (h *Hub) Register(to Recipient, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrHubFull
	}
	m, ok := h.conns[to]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[to] = m
	}
	if len(m) >= maxConnsPerRecipient {
		return nil, ErrRecipientFull
	}

	client := newClient(h, conn, to)
	m[client] = struct{}{}
	h.totalConns++
	middleware.ActiveWebSockets.Inc()
	h.log.LogConnect(context.Background(), Channel(to))
	return client, nil
}

// UnregisterClient detaches client and closes its send buffer. Safe to call
// more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.conns[client.Recipient]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.Recipient)
	}
	h.totalConns--
	middleware.ActiveWebSockets.Dec()
	close(client.Send)
	h.log.LogDisconnect(context.Background(), Channel(client.Recipient), "unregistered")
}

// Connections returns how many clients to has open.
func (h *Hub) Connections(to Recipient) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[to])
}

// Broadcast sends payload to every connection of to.
func (h *Hub) Broadcast(to Recipient, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[to] {
		if err := c.TrySend(payload); err != nil {
			observability.GlobalLogger.Debug("websocket send skipped",
				slog.String("channel", Channel(to)),
				slog.String("reason", err.Error()),
			)
		}
	}
}

// StartWiring subscribes the hub to the notifier's Redis channels.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		to, ok := ParseChannel(channel)
		if !ok {
			observability.GlobalLogger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(to, []byte(payload))
	})
}

// Shutdown detaches every client; their write pumps close the sockets.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for to, clients := range h.conns {
		for client := range clients {
			// The write loop sends the close frame once Send is closed.
			close(client.Send)
			middleware.ActiveWebSockets.Dec()
			h.log.LogDisconnect(context.Background(), Channel(to), "shutdown")
		}
	}
	h.conns = make(map[Recipient]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
