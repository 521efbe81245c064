// Package mcp exposes the meal planner sessions as MCP tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"meal-planner/internal/app"
)

// DefaultSession is used when a tool call names no session.
const DefaultSession = "mcp"

type Server struct {
	mcpServer *server.MCPServer
	app       *app.App
}

// NewServer creates an MCP server with every meal planner tool registered.
func NewServer(a *app.App, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Meal Planner MCP Server",
			version,
			server.WithLogging(),
			server.WithRecovery(),
		),
		app: a,
	}
	s.registerTools()
	return s
}

// Start runs the stdio event loop.
func (s *Server) Start() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPRawServer exposes the raw mcp-go server.
func (s *Server) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}
