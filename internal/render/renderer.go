// Package render turns diagram source into SVG markup through an external
// rendering capability.
package render

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Renderer renders diagram source into markup. targetID scopes one render
// and ends up as the id of the root <svg> element. Invalid source yields a
// *SyntaxError; any other error means the renderer itself failed.
type Renderer interface {
	Render(ctx context.Context, targetID, source string) (string, error)
	Name() string
}

// SyntaxError is returned when the renderer rejects the diagram source.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

// NewTargetID returns a render target identifier that has never been used before.
func NewTargetID() string {
	return "flowchart-" + uuid.NewString()
}

var svgRootID = regexp.MustCompile(`(<svg\b[^>]*?\sid=")[^"]*(")`)
var svgRoot = regexp.MustCompile(`<svg\b`)

// scopeSVG sets the id attribute of the first <svg> element to targetID.
func scopeSVG(svg, targetID string) string {
	if loc := svgRoot.FindStringIndex(svg); loc != nil {
		end := strings.IndexByte(svg[loc[0]:], '>')
		if end < 0 {
			return svg
		}
		head := svg[loc[0] : loc[0]+end+1]
		var scoped string
		if svgRootID.MatchString(head) {
			scoped = svgRootID.ReplaceAllString(head, "${1}"+targetID+"${2}")
		} else {
			scoped = `<svg id="` + targetID + `"` + head[len("<svg"):]
		}
		return svg[:loc[0]] + scoped + svg[loc[0]+end+1:]
	}
	return svg
}

// SourceExtension returns the conventional file extension for diagram
// source in language, ".txt" when there is none.
func SourceExtension(language string) string {
	switch language {
	case "mermaid":
		return ".mmd"
	case "plantuml":
		return ".puml"
	case "graphviz", "dot":
		return ".dot"
	case "d2":
		return ".d2"
	default:
		return ".txt"
	}
}
