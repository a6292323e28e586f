package server

import (
	"net/http"

	"github.com/Baaaki/roomchat/internal/handler"
	"github.com/Baaaki/roomchat/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// RouterOptions carries what NewRouter needs besides the handlers.
type RouterOptions struct {
	AllowedOrigins []string
	Production     bool
	// RateLimiter guards the REST routes when set.
	RateLimiter *middleware.RateLimiter
}

// NewRouter mounts the REST, WebSocket and health routes.
func NewRouter(messages *handler.MessageHandler, ws *handler.WebSocketHandler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		middleware.SecurityHeadersMiddleware(),
		middleware.HSTSMiddleware(opts.Production),
		cors.New(corsConfig(opts.AllowedOrigins)),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/")
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.Middleware())
	}
	{
		api.GET("/messages", messages.GetMessages)
		api.PATCH("/deleteMessage/:id", messages.DeleteMessage)
	}

	router.GET("/ws", ws.HandleWebSocket)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}

	if len(origins) == 0 || lo.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
