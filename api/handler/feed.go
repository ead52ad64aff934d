package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pulsefeed/backend/pkg/httpcontext"
	feedUC "github.com/pulsefeed/backend/usecase/feed"
)

type FeedHandler struct {
	baseHandler
	uc *feedUC.UseCase
}

func NewFeedHandler(uc *feedUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Recent notifications with actor names
// @Tags feed
// @Router /api/v1/notifications [get]
func (h *FeedHandler) GetNotifications(ctx *fasthttp.RequestCtx) {
	limit := parseInt(string(ctx.QueryArgs().Peek("limit")), 50)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	notifications, err := h.uc.ListNotifications(stdCtx, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, notifications)
}

// @Summary Current system metrics snapshot
// @Tags feed
// @Router /api/v1/metrics [get]
func (h *FeedHandler) GetMetrics(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	snapshot, err := h.uc.LatestMetrics(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, snapshot)
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
