package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/surajshivkumar/ConvoLens/internal/answer"
	"github.com/surajshivkumar/ConvoLens/internal/calls"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Asker answers a question through the router.
type Asker interface {
	Handle(ctx context.Context, q answer.Question) (*answer.Envelope, error)
}

// Archive exposes the browsing queries.
type Archive interface {
	Recent(ctx context.Context, limit int) ([]calls.Call, error)
	Stats(ctx context.Context) (*calls.Stats, error)
}

// Server wraps an MCP server that exposes the call archive to assistants.
type Server struct {
	asker   Asker
	archive Archive
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(asker Asker, archive Archive) *Server {
	s := &Server{
		asker:   asker,
		archive: archive,
	}

	s.mcp = server.NewMCPServer(
		"convolens",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askCallArchiveTool, s.handleAskCallArchive)
	s.mcp.AddTool(listRecentCallsTool, s.handleListRecentCalls)
	s.mcp.AddTool(callStatsTool, s.handleCallStats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
