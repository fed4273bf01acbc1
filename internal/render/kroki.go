package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Kroki renders through a Kroki server (https://kroki.io or self-hosted).
type Kroki struct {
	baseURL  string
	language string
	client   *http.Client
}

// NewKroki creates a Kroki renderer for the given diagram language.
func NewKroki(baseURL, language string, timeout time.Duration) *Kroki {
	return &Kroki{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

func (k *Kroki) Name() string { return "kroki" }

func (k *Kroki) Render(ctx context.Context, targetID, source string) (string, error) {
	url := fmt.Sprintf("%s/%s/svg", k.baseURL, k.language)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("creating kroki request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "image/svg+xml")

	resp, err := k.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("kroki request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading kroki response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return scopeSVG(string(body), targetID), nil
	case resp.StatusCode == http.StatusBadRequest:
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = "kroki rejected the diagram"
		}
		return "", &SyntaxError{Message: msg}
	default:
		return "", fmt.Errorf("kroki returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
