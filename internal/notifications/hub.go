package notifications

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

var (
	ErrUserConnLimit  = errors.New("user connection limit reached")
	ErrTotalConnLimit = errors.New("server connection limit reached")
)

type clientSet map[*Client]struct{}

// Hub fans published events out to the open notification streams of each figure.
// A figure may have several streams, one per tab.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]clientSet
	total  int
	closed bool
	log    *observability.WSLogger
}

func NewHub() *Hub {
	return &Hub{
		byUser: make(map[uint]clientSet),
		log:    observability.NewWSLogger("notifications"),
	}
}

// Name labels this hub in metrics and logs.
func (h *Hub) Name() string { return "notifications" }

// Register admits a new stream for userID. It fails once the hub is shut down or a limit is hit.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed, h.total >= maxTotalConns:
		return nil, ErrTotalConnLimit
	case len(h.byUser[userID]) >= maxConnsPerUser:
		return nil, ErrUserConnLimit
	}

	set := h.byUser[userID]
	if set == nil {
		set = make(clientSet)
		h.byUser[userID] = set
	}
	client := NewClient(h, conn, userID)
	set[client] = struct{}{}
	h.total++

	observability.WebSocketConnections.Inc()
	h.log.LogConnect(userID)
	return client, nil
}

// UnregisterClient forgets client. Unknown or already removed clients are ignored.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.byUser[client.UserID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.byUser, client.UserID)
	}
	h.total--

	observability.WebSocketConnections.Dec()
	h.log.LogDisconnect(client.UserID, "unregistered")
}

// Broadcast queues message on every stream userID has open. Slow streams drop it.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.byUser[userID]
	if len(set) == 0 {
		return
	}
	data := []byte(message)
	for c := range set {
		c.TrySend(data)
	}
}

func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// StartWiring feeds the hub from the Notifier's per-user Redis channels until ctx ends.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, ok := ParseUserChannel(channel)
		if !ok {
			observability.L().Warn("dropping event on unexpected channel", zap.String("channel", channel))
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown closes every stream and refuses new ones. Each WritePump sends a
// close frame when its queue closes.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for _, set := range h.byUser {
		for c := range set {
			c.closeSend()
		}
	}
	observability.WebSocketConnections.Sub(float64(h.total))
	h.byUser = make(map[uint]clientSet)
	h.total = 0
	return nil
}
