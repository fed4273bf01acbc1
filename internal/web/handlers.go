package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/render"
)

// generateRequest is the body of POST /api/generate.
type generateRequest struct {
	APIKey string `json:"api_key"`
	Prompt string `json:"prompt"`
}

// statusFor maps a cycle outcome to an HTTP status.
func statusFor(o flowchart.Outcome) int {
	switch o {
	case flowchart.OutcomeRendered:
		return http.StatusOK
	case flowchart.OutcomeValidationFailed:
		return http.StatusBadRequest
	case flowchart.OutcomeTransportFailed, flowchart.OutcomeAPIFailed:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func (d *Web) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := d.shared.Generate(r.Context(), req.APIKey, req.Prompt)
	if errors.Is(err, flowchart.ErrBusy) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, statusFor(c.Outcome), d.view(c))
}

func (d *Web) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	a, ok := d.shared.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no diagram"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (d *Web) handleClearDiagram(w http.ResponseWriter, r *http.Request) {
	d.shared.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (d *Web) handleDownloadSVG(w http.ResponseWriter, r *http.Request) {
	a, ok := d.shared.Current()
	if !ok {
		http.Error(w, "no diagram", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="flowchart.svg"`)
	w.Write([]byte(a.Markup))
}

func (d *Web) handleDownloadSource(w http.ResponseWriter, r *http.Request) {
	a, ok := d.shared.Current()
	if !ok {
		http.Error(w, "no diagram", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="flowchart`+render.SourceExtension(d.language)+`"`)
	w.Write([]byte(a.Source))
}
