// Package journal keeps a local record of generation cycles: outcome,
// timing, provider and token usage. It never stores prompts, API keys or
// diagram source.
package journal

import "time"

// Entry is a single journal record.
type Entry struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	Outcome      string        `json:"outcome"`
	Message      string        `json:"message,omitempty"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model,omitempty"`
	PromptChars  int           `json:"prompt_chars"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	CostUSD      float64       `json:"cost_usd"`
	Duration     time.Duration `json:"duration"`
	TargetID     string        `json:"target_id,omitempty"`
}

// Summary aggregates journal entries.
type Summary struct {
	Total        int            `json:"total"`
	ByOutcome    map[string]int `json:"by_outcome"`
	InputTokens  int            `json:"input_tokens"`
	OutputTokens int            `json:"output_tokens"`
	CostUSD      float64        `json:"cost_usd"`
}
