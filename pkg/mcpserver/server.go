// Package mcpserver exposes the fact store over the Model Context Protocol
// so agents can remember and recall without linking the library.
package mcpserver

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	tenet "github.com/tenetdb/tenet"
)

// Server wraps an MCP server around a tenet client.
type Server struct {
	mcp    *server.MCPServer
	client *tenet.Client
	logger *slog.Logger
}

// New creates an MCP server with all tools registered.
func New(client *tenet.Client, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mcpServer := server.NewMCPServer(
		"tenet",
		version,
		server.WithToolCapabilities(true),
	)
	s := &Server{mcp: mcpServer, client: client, logger: logger}
	s.registerTools()
	return s
}

// ServeStdio runs the server over stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCP returns the underlying server for additional registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}
