package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes flowchart generation tools.
type Server struct {
	gen       *flowchart.Generator
	extractor *flowchart.Extractor
	// apiKey is used when a tool call carries no api_key argument.
	apiKey string
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server around gen. apiKey may be empty.
func NewServer(gen *flowchart.Generator, extractor *flowchart.Extractor, apiKey string) *Server {
	s := &Server{
		gen:       gen,
		extractor: extractor,
		apiKey:    apiKey,
	}

	s.mcp = server.NewMCPServer(
		"flowgen",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(generateFlowchartTool, s.handleGenerateFlowchart)
	s.mcp.AddTool(extractDiagramSourceTool, s.handleExtractDiagramSource)
	s.mcp.AddTool(getCurrentDiagramTool, s.handleGetCurrentDiagram)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
