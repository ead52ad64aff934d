package handler

import (
	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pulsefeed/backend/internal/ws"
)

// WSHandler upgrades connections into the broadcast hub.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.FastHTTPUpgrader
	logger   *zap.Logger
}

func NewWSHandler(hub *ws.Hub, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Subscribers connect from the dashboard origin or tooling; the
			// channel is read-only apart from the authenticate message.
			CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
		},
	}
}

// Subscribe upgrades the request and pumps messages until the peer leaves.
func (h *WSHandler) Subscribe(ctx *fasthttp.RequestCtx) {
	err := h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := ws.NewClient(h.hub, conn, h.logger)
		client.Run()
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}
