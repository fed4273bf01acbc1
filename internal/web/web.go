// Package web serves the browser UI and the generation API: REST endpoints
// backed by one shared generator, and a websocket channel that gives every
// connected page a generator of its own.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/logger"
	"github.com/ziadkadry99/flowgen/internal/render"
)

// GeneratorFactory builds a generator with the configured completer,
// extractor and renderer plus any extra options.
type GeneratorFactory func(opts ...flowchart.Option) *flowchart.Generator

// Web provides the UI page and the generation endpoints.
type Web struct {
	newGenerator GeneratorFactory
	shared       *flowchart.Generator
	language     string
}

// New creates a Web. The shared generator backs the REST endpoints.
func New(newGenerator GeneratorFactory) *Web {
	shared := newGenerator()
	return &Web{
		newGenerator: newGenerator,
		shared:       shared,
		language:     shared.Language(),
	}
}

// RegisterRoutes mounts the page and the websocket channel on r, and the
// bounded REST endpoints on api.
func (d *Web) RegisterRoutes(r, api chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/ws/generate", d.handleWebSocket)

	api.Post("/api/generate", d.handleGenerate)
	api.Get("/api/diagram", d.handleGetDiagram)
	api.Delete("/api/diagram", d.handleClearDiagram)
	api.Get("/api/diagram/svg", d.handleDownloadSVG)
	api.Get("/api/diagram/source", d.handleDownloadSource)
}

// cycleView is a finished cycle as sent to the browser.
type cycleView struct {
	*flowchart.Cycle
	Language   string `json:"language"`
	SourceHTML string `json:"source_html,omitempty"`
}

func (d *Web) view(c *flowchart.Cycle) cycleView {
	v := cycleView{Cycle: c, Language: d.language}
	if c.Source != "" {
		html, err := render.HighlightSource(d.language, c.Source)
		if err != nil {
			logger.Warnf("web: %v", err)
		} else {
			v.SourceHTML = html
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
