package mcp

import "github.com/mark3labs/mcp-go/mcp"

// generateFlowchartTool defines the generate_flowchart MCP tool.
var generateFlowchartTool = mcp.NewTool("generate_flowchart",
	mcp.WithDescription("Turn a natural-language description of a process into a rendered flowchart. Returns the diagram source, or the SVG markup with format=svg."),
	mcp.WithString("prompt",
		mcp.Required(),
		mcp.Description("Description of the process to draw"),
	),
	mcp.WithString("api_key",
		mcp.Description("API key for the completion provider (defaults to the key the server was started with)"),
	),
	mcp.WithString("format",
		mcp.Description("What to return (default source)"),
		mcp.Enum("source", "svg"),
	),
)

// extractDiagramSourceTool defines the extract_diagram_source MCP tool.
var extractDiagramSourceTool = mcp.NewTool("extract_diagram_source",
	mcp.WithDescription("Extract the first fenced diagram code block from arbitrary text."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Text that may contain a fenced diagram block"),
	),
)

// getCurrentDiagramTool defines the get_current_diagram MCP tool.
var getCurrentDiagramTool = mcp.NewTool("get_current_diagram",
	mcp.WithDescription("Get the most recently rendered diagram of this session."),
	mcp.WithString("format",
		mcp.Description("What to return (default source)"),
		mcp.Enum("source", "svg"),
	),
)
