package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// MermaidCLI renders through the mermaid-cli binary (mmdc).
type MermaidCLI struct {
	bin     string
	timeout time.Duration
}

// NewMermaidCLI creates a renderer that runs bin. A zero timeout means no
// limit beyond the caller's context.
func NewMermaidCLI(bin string, timeout time.Duration) *MermaidCLI {
	if bin == "" {
		bin = "mmdc"
	}
	return &MermaidCLI{bin: bin, timeout: timeout}
}

func (m *MermaidCLI) Name() string { return "mmdc" }

func (m *MermaidCLI) Render(ctx context.Context, targetID, source string) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	tmpDir, err := os.MkdirTemp("", "flowgen-")
	if err != nil {
		return "", fmt.Errorf("creating render dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, targetID+".mmd")
	outputPath := filepath.Join(tmpDir, targetID+".svg")
	if err := os.WriteFile(inputPath, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("writing diagram source: %w", err)
	}

	cmd := exec.CommandContext(ctx, m.bin,
		"-i", inputPath,
		"-o", outputPath,
		"-I", targetID,
		"-b", "transparent",
		"-q",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("mermaid-cli not found (%s): install @mermaid-js/mermaid-cli or use the kroki renderer", m.bin)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("mermaid-cli: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &SyntaxError{Message: cliMessage(stderr.String())}
		}
		return "", fmt.Errorf("running mermaid-cli: %w", err)
	}

	svg, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("mermaid-cli produced no SVG: %w", err)
	}
	return scopeSVG(string(svg), targetID), nil
}

// cliMessage keeps the parser message from mmdc stderr and drops the
// JavaScript stack trace that follows it.
func cliMessage(stderr string) string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(stderr, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "at ") {
			break
		}
		lines = append(lines, line)
	}
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	msg = strings.TrimPrefix(msg, "Error: ")
	if msg == "" {
		return "mermaid-cli rejected the diagram"
	}
	return msg
}
