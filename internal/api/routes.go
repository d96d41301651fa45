// Package api is the REST transport. It fronts the same editor as the MCP
// tools, with the same error taxonomy rendered as {code, message, details}.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP engine with middleware and every route. A nil
// mcpHandler or metricsHandler leaves that endpoint unmounted.
func NewRouter(h *Handlers, mcpHandler, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), allowCORS())
	SetupRoutes(router, h, mcpHandler, metricsHandler)
	return router
}

// SetupRoutes registers the docsmith routes.
//
//	GET    /, /health                   liveness
//	POST   /v1/documents                multipart upload (field "file")
//	POST   /v1/documents/remote         upload from a URL
//	GET    /v1/documents/:id            describe
//	DELETE /v1/documents/:id            discard
//	POST   /v1/documents/:id/analyze    generate suggestions
//	GET    /v1/documents/:id/suggestions live generation with applied flags
//	POST   /v1/documents/:id/apply      apply accepted suggestions
//	GET    /downloads/:name             artifact bytes
//	ANY    /mcp                         MCP streamable HTTP
//	GET    /metrics                     Prometheus
func SetupRoutes(router *gin.Engine, h *Handlers, mcpHandler, metricsHandler http.Handler) {
	router.GET("/", h.HandleHealth)
	router.GET("/health", h.HandleHealth)
	router.GET("/downloads/:name", h.HandleDownload)

	v1 := router.Group("/v1")
	{
		docs := v1.Group("/documents")
		{
			docs.POST("", h.HandleUpload)
			docs.POST("/remote", h.HandleUploadRemote)
			docs.GET("/:id", h.HandleDescribe)
			docs.DELETE("/:id", h.HandleDiscard)
			docs.POST("/:id/analyze", h.HandleAnalyze)
			docs.GET("/:id/suggestions", h.HandleSuggestions)
			docs.POST("/:id/apply", h.HandleApply)
		}
	}

	if mcpHandler != nil {
		router.Any("/mcp", gin.WrapH(mcpHandler))
	}
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// allowCORS lets browser-hosted widgets call the API from any origin.
func allowCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		hdr := c.Writer.Header()
		hdr.Set("Access-Control-Allow-Origin", "*")
		hdr.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		hdr.Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, Mcp-Protocol-Version")
		hdr.Set("Access-Control-Expose-Headers", "Mcp-Session-Id, Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
