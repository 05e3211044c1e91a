package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nordhen/credgate/internal/config"
	"github.com/nordhen/credgate/internal/handler"
	"github.com/nordhen/credgate/internal/server/middleware"
)

// SetupRouter configures middleware and routes.
func SetupRouter(
	cfg *config.Config,
	handlers *handler.Handlers,
	apiKeyAuth middleware.APIKeyAuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	registerRoutes(r, handlers, apiKeyAuth)

	return r
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, apiKeyAuth middleware.APIKeyAuthMiddleware) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := r.Group("", gin.HandlerFunc(apiKeyAuth))

	protected.POST("/v1internal/:method", h.Gateway.Invoke)

	debug := protected.Group("/debug")
	debug.GET("/cache", h.Debug.Cache)
	debug.GET("/probe", h.Debug.Probe)
}

// NewHTTPServer wraps the router in an http.Server with the configured
// listen address and timeouts.
func NewHTTPServer(cfg *config.Config, r *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
}
