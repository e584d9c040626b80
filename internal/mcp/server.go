// Package mcp exposes the curation service as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/service"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingService is returned when no curation service is provided.
var ErrMissingService = errors.New("mcp: curation service is required")

// Server is the MCP server for variant curation.
type Server struct {
	service *service.CurationService
	logger  *logrus.Logger
	server  *mcp.Server
}

// NewServer creates an MCP server with every curation tool registered.
func NewServer(svc *service.CurationService, logger *logrus.Logger) (*Server, error) {
	if svc == nil {
		return nil, ErrMissingService
	}
	if logger == nil {
		logger = logrus.New()
	}

	impl := &mcp.Implementation{
		Name:    "variant-curation-server",
		Version: Version,
	}

	s := &Server{
		service: svc,
		logger:  logger,
		server:  mcp.NewServer(impl, nil),
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("tools", len(toolNames)).Info("Starting MCP server on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
