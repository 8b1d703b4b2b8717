package notifications

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// Connection timing. pingEvery has to stay below pongTimeout or idle peers are dropped.
const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingEvery    = pongTimeout * 9 / 10

	// The notification stream is one-way; inbound frames are pongs and closes.
	maxInboundBytes = 4096

	sendBuffer = 64
)

// owner is the hub side of a Client.
type owner interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one websocket tab of a figure. Events queue on Send and are written
// by WritePump; ReadPump only keeps the connection alive.
type Client struct {
	Hub    owner
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uint

	closeOnce sync.Once
}

func NewClient(hub owner, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// ReadPump blocks until the peer goes away, then unregisters the client.
func (c *Client) ReadPump() {
	defer c.teardown()

	c.Conn.SetReadLimit(maxInboundBytes)
	c.extendRead()
	c.Conn.SetPongHandler(func(string) error {
		c.extendRead()
		return nil
	})

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			observability.L().Debug("notification stream read ended", zap.Uint("user_id", c.UserID), zap.Error(err))
		}
		return
	}
}

// WritePump owns every write on Conn: queued events, keepalive pings and the final close frame.
func (c *Client) WritePump() {
	keepalive := time.NewTicker(pingEvery)
	defer func() {
		keepalive.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, open := <-c.Send:
			if !open {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, event); err != nil {
				return
			}
		case <-keepalive.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues an event for delivery. It never blocks: a full or closed queue
// drops the event and reports false.
func (c *Client) TrySend(event []byte) (queued bool) {
	defer func() {
		// Send was closed by teardown or hub shutdown.
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
			queued = false
		}
	}()

	select {
	case c.Send <- event:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		return false
	}
}

func (c *Client) write(kind int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteMessage(kind, data)
}

func (c *Client) extendRead() {
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
}

func (c *Client) teardown() {
	c.Hub.UnregisterClient(c)
	c.closeSend()
	_ = c.Conn.Close()
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}
