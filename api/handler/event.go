package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pulsefeed/backend/api/transport"
	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/pkg/httpcontext"
	ingestUC "github.com/pulsefeed/backend/usecase/ingest"
)

type EventHandler struct {
	baseHandler
	uc *ingestUC.UseCase
}

func NewEventHandler(uc *ingestUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Submit an interaction event
// @Tags events
// @Router /api/v1/events [post]
func (h *EventHandler) CreateEvent(ctx *fasthttp.RequestCtx) {
	var req transport.CreateEventRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	event := &domain.Event{
		Type:         req.Type,
		ActorID:      req.ActorID,
		TargetUserID: req.TargetUserID,
		ContentID:    req.ContentID,
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateEvent(stdCtx, event)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}
