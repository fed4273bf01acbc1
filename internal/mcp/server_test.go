package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/llm"
	"github.com/ziadkadry99/flowgen/internal/render"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	content string
	lastKey string
	calls   int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.calls++
	m.lastKey = req.APIKey
	return &llm.CompletionResponse{Content: m.content}, nil
}

// mockRenderer implements render.Renderer for testing.
type mockRenderer struct {
	err error
}

func (m *mockRenderer) Name() string { return "mock" }

func (m *mockRenderer) Render(_ context.Context, targetID, source string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return `<svg id="` + targetID + `"></svg>`, nil
}

func newTestServer(p *mockProvider, r *mockRenderer, apiKey string) *Server {
	ext := flowchart.NewExtractor("mermaid")
	gen := flowchart.NewGenerator(flowchart.NewCompleter(p, flowchart.DefaultParams(), "mermaid"), ext, r)
	return NewServer(gen, ext, apiKey)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"generate_flowchart", generateFlowchartTool, "generate_flowchart"},
		{"extract_diagram_source", extractDiagramSourceTool, "extract_diagram_source"},
		{"get_current_diagram", getCurrentDiagramTool, "get_current_diagram"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(&mockProvider{}, &mockRenderer{}, "env-key")
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.apiKey != "env-key" {
		t.Errorf("apiKey = %q", srv.apiKey)
	}
}

func TestHandleGenerateFlowchart(t *testing.T) {
	ctx := context.Background()
	const reply = "```mermaid\ngraph TD; A-->B\n```"

	t.Run("source", func(t *testing.T) {
		p := &mockProvider{content: reply}
		srv := newTestServer(p, &mockRenderer{}, "")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"prompt": "login", "api_key": "k"}

		result, err := srv.handleGenerateFlowchart(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}
		if got := resultText(t, result); got != "```mermaid\ngraph TD; A-->B\n```" {
			t.Errorf("text = %q", got)
		}
	})

	t.Run("svg", func(t *testing.T) {
		srv := newTestServer(&mockProvider{content: reply}, &mockRenderer{}, "")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"prompt": "login", "api_key": "k", "format": "svg"}

		result, _ := srv.handleGenerateFlowchart(ctx, req)
		if !strings.HasPrefix(resultText(t, result), `<svg id="flowchart-`) {
			t.Errorf("text = %q", resultText(t, result))
		}
	})

	t.Run("default key", func(t *testing.T) {
		p := &mockProvider{content: reply}
		srv := newTestServer(p, &mockRenderer{}, "env-key")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"prompt": "login"}

		result, _ := srv.handleGenerateFlowchart(ctx, req)
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}
		if p.lastKey != "env-key" {
			t.Errorf("key = %q", p.lastKey)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		p := &mockProvider{content: reply}
		srv := newTestServer(p, &mockRenderer{}, "")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"prompt": "login"}

		result, _ := srv.handleGenerateFlowchart(ctx, req)
		if !result.IsError {
			t.Error("expected error for missing key")
		}
		if !strings.Contains(resultText(t, result), "validation_failed") {
			t.Errorf("text = %q", resultText(t, result))
		}
		if p.calls != 0 {
			t.Errorf("provider called %d times", p.calls)
		}
	})

	t.Run("missing prompt", func(t *testing.T) {
		srv := newTestServer(&mockProvider{}, &mockRenderer{}, "k")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, _ := srv.handleGenerateFlowchart(ctx, req)
		if !result.IsError {
			t.Error("expected error for missing prompt")
		}
	})

	t.Run("render failure keeps source", func(t *testing.T) {
		r := &mockRenderer{err: &render.SyntaxError{Message: "Parse error on line 1"}}
		srv := newTestServer(&mockProvider{content: reply}, r, "k")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"prompt": "login"}

		result, _ := srv.handleGenerateFlowchart(ctx, req)
		if !result.IsError {
			t.Fatal("expected tool error")
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Parse error on line 1") || !strings.Contains(text, "graph TD; A-->B") {
			t.Errorf("text = %q", text)
		}
	})
}

func TestHandleExtractDiagramSource(t *testing.T) {
	srv := newTestServer(&mockProvider{}, &mockRenderer{}, "")
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"text": "Sure!\r\n```mermaid\r\ngraph LR; X-->Y\r\n```\r\n"}

		result, _ := srv.handleExtractDiagramSource(ctx, req)
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}
		if got := resultText(t, result); got != "graph LR; X-->Y" {
			t.Errorf("text = %q", got)
		}
	})

	t.Run("absent", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"text": "no diagram"}

		result, _ := srv.handleExtractDiagramSource(ctx, req)
		if !result.IsError {
			t.Error("expected error when no block is present")
		}
	})
}

func TestHandleGetCurrentDiagram(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(&mockProvider{content: "```mermaid\ngraph TD; A\n```"}, &mockRenderer{}, "k")

	result, _ := srv.handleGetCurrentDiagram(ctx, mcp.CallToolRequest{})
	if !result.IsError {
		t.Error("expected error before any generation")
	}

	gen := mcp.CallToolRequest{}
	gen.Params.Arguments = map[string]any{"prompt": "x"}
	srv.handleGenerateFlowchart(ctx, gen)

	result, _ = srv.handleGetCurrentDiagram(ctx, mcp.CallToolRequest{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "graph TD; A") {
		t.Errorf("text = %q", resultText(t, result))
	}
}
