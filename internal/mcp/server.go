// Package mcp exposes the interview service as Model Context Protocol tools,
// so an assistant can run interviews and read the suspect ranking.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roasbeef/midnight/internal/casefile"
)

// Server wraps the MCP server with the interview service.
type Server struct {
	server *mcp.Server
	svc    *casefile.Service
	log    *slog.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	// Name and Version identify the server to clients.
	Name    string
	Version string
}

// DefaultConfig returns the default MCP server configuration.
func DefaultConfig() Config {
	return Config{
		Name:    "midnight",
		Version: "0.1.0",
	}
}

// NewServer creates a new MCP server with every interview tool registered.
func NewServer(cfg Config, svc *casefile.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server: mcpServer,
		svc:    svc,
		log:    log.With("component", "mcp"),
	}
	s.registerTools()

	return s
}

// Run serves MCP requests on the given transport until it closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.log.InfoContext(ctx, "MCP server running")
	return s.server.Run(ctx, transport)
}

// Connect attaches a single session on the given transport.
func (s *Server) Connect(ctx context.Context,
	transport mcp.Transport) (*mcp.ServerSession, error) {

	return s.server.Connect(ctx, transport, nil)
}

// registerTools registers the interview tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "list_interviews",
		Description: "List interviews, most recently updated first, " +
			"optionally filtered by subject name",
	}, s.handleListInterviews)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_interview",
		Description: "Get an interview with its full transcript",
	}, s.handleGetInterview)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_interview",
		Description: "Start a live interview with a suspect",
	}, s.handleCreateInterview)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_utterance",
		Description: "Append an interviewer or suspect line to an interview",
	}, s.handleAddUtterance)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_interview",
		Description: "Score how guilty the suspect sounds",
	}, s.handleAnalyzeInterview)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_interview",
		Description: "Delete an interview and its recording",
	}, s.handleDeleteInterview)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_summary",
		Description: "Rank every interviewed suspect by likely guilt",
	}, s.handleGetSummary)
}
