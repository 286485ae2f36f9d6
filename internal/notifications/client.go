package notifications

import (
	"context"
	"errors"
	"time"

	"jeevandhara/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Socket timings. pingEvery must stay below idleTimeout or healthy
// listeners get dropped.
const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10

	// Listeners only send control frames.
	maxInbound = 4096
	sendBuffer = 64
)

var (
	errBufferFull   = errors.New("client buffer full")
	errClientClosed = errors.New("client closed")
)

// overflowNotice tells a slow listener that it missed notifications and
// should refetch its lists.
var overflowNotice = []byte(`{"type":"notifications_dropped","data":{"reason":"buffer_full"}}`)

// detacher is the part of a hub a client needs to remove itself.
type detacher interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one open notification socket of a recipient.
type Client struct {
	Recipient Recipient
	// Send queues encoded envelopes. The hub closes it on detach.
	Send chan []byte

	hub  detacher
	conn *websocket.Conn
}

func newClient(hub detacher, conn *websocket.Conn, to Recipient) *Client {
	return &Client{
		Recipient: to,
		Send:      make(chan []byte, sendBuffer),
		hub:       hub,
		conn:      conn,
	}
}

// Serve runs the socket until the peer leaves or the hub detaches the
// client. It blocks and always closes the connection.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop only exists to notice pongs and close frames.
func (c *Client) readLoop() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			observability.NewWSLogger(c.hub.Name()).LogError(context.Background(), Channel(c.Recipient), err)
		}
		return
	}
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		var (
			kind    = websocket.TextMessage
			payload []byte
		)
		select {
		case msg, open := <-c.Send:
			if !open {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			payload = msg
		case <-ping.C:
			kind = websocket.PingMessage
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}

// TrySend queues message without blocking. When the buffer is full the
// message is dropped and an overflow notice is queued if it fits.
func (c *Client) TrySend(message []byte) (err error) {
	// Send is closed once the hub detaches the client.
	defer func() {
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
			err = errClientClosed
		}
	}()

	select {
	case c.Send <- message:
		return nil
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
	select {
	case c.Send <- overflowNotice:
	default:
	}
	return errBufferFull
}
