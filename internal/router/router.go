package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/pulsefeed/backend/api/handler"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Event  *apiHandler.EventHandler
	Feed   *apiHandler.FeedHandler
	Health *apiHandler.HealthHandler
	WS     *apiHandler.WSHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	r.GET("/ws", handlers.WS.Subscribe)

	r.POST("/api/v1/auth/login", handlers.Auth.Login)

	// Event producers are deliberately unauthenticated.
	r.POST("/api/v1/events", handlers.Event.CreateEvent)

	r.GET("/api/v1/notifications", authMiddleware(handlers.Feed.GetNotifications))
	r.GET("/api/v1/metrics", authMiddleware(handlers.Feed.GetMetrics))

	return r
}
