// Package server exposes the fact store over HTTP for non-MCP integrations.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	tenet "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/config"
	"github.com/tenetdb/tenet/pkg/types"
)

// Build information, set at build time using ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Server is the HTTP front end over a tenet client.
type Server struct {
	config *config.Config
	client *tenet.Client
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

// New creates a server instance.
func New(cfg *config.Config, client *tenet.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{config: cfg, client: client, logger: logger}
}

// Setup builds the router and the underlying http.Server.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/live", s.healthCheck)
	s.router.GET("/ready", s.readinessCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/remember", s.remember)
		v1.POST("/recall", s.recall)
		v1.POST("/recall/index", s.recallIndex)
		v1.POST("/recall/details", s.recallDetails)
		v1.GET("/facts/:id/explain", s.explain)
		v1.GET("/changes", s.changes)
		v1.POST("/sweep", s.sweep)
	}
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// contextMiddleware lifts request metadata headers into the context so the
// telemetry handler can attach them to error records.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if sessionID := c.GetHeader("X-Session-ID"); sessionID != "" {
			ctx = context.WithValue(ctx, types.ContextKeySessionID, sessionID)
		}
		if projectPath := c.GetHeader("X-Project-Path"); projectPath != "" {
			ctx = context.WithValue(ctx, types.ContextKeyProjectPath, projectPath)
		}
		ctx = context.WithValue(ctx, types.ContextKeySource, "http")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
