package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/auth"
	"github.com/peermeet/signal-server/internal/config"
	"github.com/peermeet/signal-server/internal/core"
	"github.com/peermeet/signal-server/internal/persist"
)

// NewServer builds the HTTP server carrying the REST surface and the
// signaling WebSocket endpoint.
func NewServer(registry *core.Registry, router *core.Router, gateway *persist.Gateway, authService *auth.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware(cfg.CORSOrigin))

	engine.GET("/healthz", healthHandler)

	authHandlers := NewAuthHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(gateway, registry, logger)

	api := engine.Group("/api")
	api.POST("/auth/token", authHandlers.IssueToken)
	api.POST("/rooms", roomHandlers.CreateRoom)
	api.GET("/rooms/:roomId", roomHandlers.GetRoom)
	api.GET("/rooms/:roomId/participants", roomHandlers.ListParticipants)

	wsHandler := NewWSHandler(registry, router, authService, cfg.SessionQueueSize, logger)
	engine.GET("/ws", wsHandler.Serve)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
