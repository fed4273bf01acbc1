// Package flowchart turns a natural-language description into a rendered
// diagram: completion, fenced-block extraction, rendering, and the cycle
// orchestrator tying them together.
package flowchart

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/flowgen/internal/llm"
)

const mermaidInstruction = `
You are an expert in Mermaid.js syntax. Your task is to take a user's text description and convert it into valid, clean Mermaid.js code.
ONLY respond with the Mermaid code block. The code must be enclosed in a ` + "```mermaid" + ` block.
Do not include any other text, explanations, or titles before or after the code block.
`

const genericInstruction = `
You are an expert in %[1]s diagram syntax. Your task is to take a user's text description and convert it into valid, clean %[1]s code.
ONLY respond with the %[1]s code block. The code must be enclosed in a ` + "```%[1]s" + ` block.
Do not include any other text, explanations, or titles before or after the code block.
`

// SystemInstruction returns the fixed instruction sent with every prompt.
func SystemInstruction(language string) string {
	if language == "" || language == "mermaid" {
		return mermaidInstruction
	}
	return fmt.Sprintf(genericInstruction, language)
}

// Params are the fixed generation parameters of every completion.
type Params struct {
	Model           string
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// DefaultParams returns low-randomness parameters: temperature 0.2,
// top-k 1, top-p 1 and at most 4096 output tokens.
func DefaultParams() Params {
	return Params{
		Temperature:     0.2,
		TopK:            1,
		TopP:            1,
		MaxOutputTokens: 4096,
	}
}

// Completer sends a prompt with the fixed system instruction and returns the
// raw completion text.
type Completer struct {
	provider    llm.Provider
	params      Params
	instruction string
}

// NewCompleter creates a Completer for diagrams in the given fence language.
func NewCompleter(provider llm.Provider, params Params, language string) *Completer {
	return &Completer{
		provider:    provider,
		params:      params,
		instruction: SystemInstruction(language),
	}
}

// Provider returns the name of the underlying provider.
func (c *Completer) Provider() string { return c.provider.Name() }

// Model returns the configured model, empty when the provider default is used.
func (c *Completer) Model() string { return c.params.Model }

// Complete sends prompt as the sole content part. A response without text is
// returned with empty Content rather than as an error. It does not retry.
func (c *Completer) Complete(ctx context.Context, apiKey, prompt string) (*llm.CompletionResponse, error) {
	return c.provider.Complete(ctx, llm.CompletionRequest{
		Model:  c.params.Model,
		APIKey: apiKey,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: c.instruction},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:        c.params.MaxOutputTokens,
		Temperature:      c.params.Temperature,
		TopK:             c.params.TopK,
		TopP:             c.params.TopP,
		ResponseMIMEType: "text/plain",
	})
}
