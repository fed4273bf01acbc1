package flowchart

import (
	"context"
	"errors"

	"github.com/ziadkadry99/flowgen/internal/render"
)

// ExtractionFailureMessage is reported when no diagram source could be found.
const ExtractionFailureMessage = "Could not extract valid diagram code from the API response. " +
	"The response may have been empty or in an unexpected format."

// Status tags a render Result.
type Status string

const (
	StatusRendered         Status = "rendered"
	StatusExtractionFailed Status = "extraction_failed"
	StatusRenderFailed     Status = "render_failed"
)

// Result is the outcome of the render step. On StatusRendered Markup holds
// the rendered diagram. On StatusRenderFailed Source keeps the rejected
// source for inspection.
type Result struct {
	Status   Status
	Markup   string
	Message  string
	Source   string
	TargetID string
	// SyntaxError is set when the renderer rejected the source itself,
	// as opposed to failing to run.
	SyntaxError bool
	Err         error
}

// OK reports whether the diagram was rendered.
func (r Result) OK() bool { return r.Status == StatusRendered }

// Render renders source with a fresh target id. An empty source means
// extraction failed and short-circuits without calling the renderer.
func Render(ctx context.Context, renderer render.Renderer, source string) Result {
	if source == "" {
		return Result{Status: StatusExtractionFailed, Message: ExtractionFailureMessage}
	}

	targetID := render.NewTargetID()
	markup, err := renderer.Render(ctx, targetID, source)
	if err != nil {
		var syn *render.SyntaxError
		return Result{
			Status:      StatusRenderFailed,
			Message:     err.Error(),
			Source:      source,
			TargetID:    targetID,
			SyntaxError: errors.As(err, &syn),
			Err:         err,
		}
	}

	return Result{
		Status:   StatusRendered,
		Markup:   markup,
		Source:   source,
		TargetID: targetID,
	}
}
