package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Outbound message kinds.
const (
	KindNotification = "notification"
	KindMetrics      = "metrics"
)

// envelope is the wire shape of every outbound message.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks live subscriber connections and fans typed messages out to
// them. The client set is mutated from connection lifecycle callbacks running
// on different goroutines, so all access is mutex-guarded. A client that
// cannot keep up (full send buffer) is dropped rather than blocking the
// fan-out to everyone else.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Register adds a client to the active set.
func (h *Hub) Register(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("subscriber registered", zap.Int("subscribers", h.Count()))
}

// Unregister removes a client and closes its send channel. Idempotent:
// lifecycle callbacks may fire more than once for the same connection.
func (h *Hub) Unregister(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if present {
		h.logger.Debug("subscriber removed", zap.Int("subscribers", h.Count()))
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes {type, data} and pushes it to every live subscriber.
// Send failures on individual members never abort the fan-out.
func (h *Hub) Broadcast(kind string, payload interface{}) {
	h.send(kind, payload, nil)
}

// BroadcastTo pushes only to subscribers authenticated as userID.
func (h *Hub) BroadcastTo(userID int64, kind string, payload interface{}) {
	h.send(kind, payload, &userID)
}

func (h *Hub) send(kind string, payload interface{}, userID *int64) {
	body, err := json.Marshal(envelope{Type: kind, Data: payload})
	if err != nil {
		h.logger.Error("broadcast payload not serializable", zap.String("kind", kind), zap.Error(err))
		return
	}

	var stale []*Client

	h.mu.Lock()
	for c := range h.clients {
		if userID != nil && c.UserID() != *userID {
			continue
		}
		select {
		case c.send <- body:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.logger.Warn("dropping slow subscriber", zap.Int64("user_id", c.UserID()))
		h.Unregister(c)
	}
}
