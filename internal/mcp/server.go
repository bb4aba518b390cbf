// ABOUTME: MCP server setup for the migraine journal and data settings.
// ABOUTME: Wraps the MCP server with the journal repository and settings service.
package mcp

import (
	"context"
	"fmt"

	"github.com/harperreed/migraine/internal/settings"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
	settings  *settings.Service
}

// NewServer creates a new MCP server over repo and the settings service.
func NewServer(repo storage.Repository, svc *settings.Service) (*Server, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("settings service is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "migraine",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		settings:  svc,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
