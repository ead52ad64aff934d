package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 32
	writeTimeout   = 5 * time.Second
)

// inbound is the only message shape peers are expected to send. A connection
// with no authenticate message stays anonymous and receives broadcast-all
// traffic only.
type inbound struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
}

// Client wraps one live WebSocket connection. Writes flow through the send
// channel so the hub never blocks on a peer's socket.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	send   chan []byte
	userID atomic.Int64
}

func NewClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		hub:    hub,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
	}
}

// UserID returns the authenticated user, or 0 for anonymous connections.
func (c *Client) UserID() int64 {
	return c.userID.Load()
}

// Run registers the client and pumps messages until the connection dies.
// Blocks until the read side closes.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("subscriber read error", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Debug("ignoring malformed subscriber message", zap.Error(err))
			continue
		}
		if msg.Type == "authenticate" && msg.UserID > 0 {
			c.userID.Store(msg.UserID)
			c.logger.Debug("subscriber authenticated", zap.Int64("user_id", msg.UserID))
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	// Send channel closed by the hub: say goodbye properly.
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
