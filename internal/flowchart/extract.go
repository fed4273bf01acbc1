package flowchart

import (
	"regexp"
	"strings"
)

// Extractor isolates the first fenced code block tagged with a language.
type Extractor struct {
	language string
	fence    *regexp.Regexp
}

// NewExtractor creates an Extractor for blocks opened by "```<language>".
func NewExtractor(language string) *Extractor {
	if language == "" {
		language = "mermaid"
	}
	// Opening fence and tag, then a line break; the interior runs lazily up
	// to the first line break followed by a closing fence. Either line
	// ending is accepted at both ends.
	pattern := "```" + regexp.QuoteMeta(language) + `[ \t]*\r?\n((?s:.*?))\r?\n` + "```"
	return &Extractor{
		language: language,
		fence:    regexp.MustCompile(pattern),
	}
}

// Language returns the fence tag this extractor looks for.
func (e *Extractor) Language() string { return e.language }

// Extract returns the trimmed interior of the first matching fenced block,
// with CRLF line endings normalized to LF. It reports false when the text is empty, holds no such block, or the
// block is blank.
func (e *Extractor) Extract(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	m := e.fence.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	source := strings.TrimSpace(strings.ReplaceAll(m[1], "\r\n", "\n"))
	if source == "" {
		return "", false
	}
	return source, true
}

var defaultExtractor = NewExtractor("mermaid")

// Extract is Extractor.Extract for ```mermaid blocks.
func Extract(raw string) (string, bool) {
	return defaultExtractor.Extract(raw)
}
