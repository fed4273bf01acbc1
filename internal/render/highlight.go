package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

var sourceMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
)

// HighlightSource returns the diagram source as an HTML code block with
// syntax highlighting, for display next to the rendered diagram.
func HighlightSource(language, source string) (string, error) {
	fence := "```"
	for strings.Contains(source, fence) {
		fence += "`"
	}
	md := fmt.Sprintf("%s%s\n%s\n%s\n", fence, language, source, fence)

	var buf bytes.Buffer
	if err := sourceMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("highlighting source: %w", err)
	}
	return buf.String(), nil
}
