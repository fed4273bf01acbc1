package config

// defaultModels maps each provider to the model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderGoogle: "gemini-1.5-flash-latest",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderOllama: "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGoogle,
		Model:    defaultModels[ProviderGoogle],
		Generation: GenerationConfig{
			Temperature:     0.2,
			TopK:            1,
			TopP:            1,
			MaxOutputTokens: 4096,
		},
		Language: "mermaid",
		Renderer: RendererConfig{
			Type:           RendererMermaidCLI,
			MmdcPath:       "mmdc",
			KrokiURL:       "https://kroki.io",
			TimeoutSeconds: 30,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    ".flowgen/journal.db",
		},
	}
}

// DefaultModel returns the default model for the given provider, falling
// back to the Google default.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderGoogle]
}
