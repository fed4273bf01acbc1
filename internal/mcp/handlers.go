package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
)

// handleGenerateFlowchart runs one generation cycle.
func (s *Server) handleGenerateFlowchart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: prompt"), nil
	}
	apiKey := request.GetString("api_key", s.apiKey)
	format := request.GetString("format", "source")

	c, err := s.gen.Generate(ctx, apiKey, prompt)
	if errors.Is(err, flowchart.ErrBusy) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	if !c.OK() {
		msg := fmt.Sprintf("%s: %s", c.Outcome, c.Message)
		if c.Outcome == flowchart.OutcomeRenderFailed {
			msg += "\n\nRejected source:\n" + fence(s.extractor.Language(), c.Source)
		}
		return mcp.NewToolResultError(msg), nil
	}

	if format == "svg" {
		return mcp.NewToolResultText(c.Markup), nil
	}
	return mcp.NewToolResultText(fence(s.extractor.Language(), c.Source)), nil
}

// handleExtractDiagramSource runs extraction alone, without any network call.
func (s *Server) handleExtractDiagramSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	source, ok := s.extractor.Extract(text)
	if !ok {
		return mcp.NewToolResultError(flowchart.ExtractionFailureMessage), nil
	}
	return mcp.NewToolResultText(source), nil
}

// handleGetCurrentDiagram returns the artifact kept from the last successful cycle.
func (s *Server) handleGetCurrentDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, ok := s.gen.Current()
	if !ok {
		return mcp.NewToolResultError("No diagram yet. Call generate_flowchart first."), nil
	}
	if request.GetString("format", "source") == "svg" {
		return mcp.NewToolResultText(a.Markup), nil
	}
	return mcp.NewToolResultText(fence(s.extractor.Language(), a.Source)), nil
}

func fence(language, source string) string {
	return "```" + language + "\n" + source + "\n```"
}
