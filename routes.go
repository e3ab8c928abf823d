package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *AppServer) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/health", s.healthHandler)
	if s.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	mcpHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return s.mcpServer },
		&mcp.StreamableHTTPOptions{JSONResponse: true},
	)
	router.Any("/mcp", gin.WrapH(mcpHandler))
	router.Any("/mcp/*path", gin.WrapH(mcpHandler))

	api := router.Group("/api/v1")
	{
		api.GET("/settings", s.getSettingsHandler)
		api.PUT("/settings", s.updateSettingsHandler)

		api.POST("/butler/start", s.startButlerHandler)
		api.POST("/butler/stop", s.stopButlerHandler)
		api.GET("/butler/status", s.butlerStatusHandler)

		api.POST("/comments/generate", s.generateCommentHandler)
		api.POST("/extract", s.extractHandler)
	}

	return router
}
