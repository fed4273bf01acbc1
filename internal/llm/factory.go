package llm

import (
	"fmt"
	"os"
)

const defaultOllamaHost = "http://localhost:11434"

// NewProvider creates a new LLM provider for the given provider type and model.
// Supported provider types: "google", "openai", "ollama". baseURL overrides
// the provider's default endpoint when non-empty. Credentials are supplied
// per request through CompletionRequest.APIKey.
func NewProvider(providerType, model, baseURL string) (Provider, error) {
	switch providerType {
	case "google":
		return NewGoogleProvider("", model).WithBaseURL(baseURL), nil

	case "openai":
		return NewOpenAIProvider("", model, baseURL), nil

	case "ollama":
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// RequiresAPIKey reports whether requests to the provider type need a credential.
func RequiresAPIKey(providerType string) bool {
	return providerType != "ollama"
}
