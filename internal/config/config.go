package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// envPrefix is the prefix for environment overrides. Nested keys use a
// double underscore: FLOWGEN_RENDERER__TYPE -> renderer.type.
const envPrefix = "FLOWGEN_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FLOWGEN_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderGoogle: true,
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validRenderers = map[RendererType]bool{
	RendererMermaidCLI: true,
	RendererKroki:      true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of google, openai, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Language == "" {
		return fmt.Errorf("language is required")
	}
	if strings.ContainsAny(c.Language, " \t\r\n`") {
		return fmt.Errorf("invalid language %q: must be a single fence tag", c.Language)
	}
	g := c.Generation
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2]")
	}
	if g.TopK < 0 {
		return fmt.Errorf("generation.top_k must be non-negative")
	}
	if g.TopP < 0 || g.TopP > 1 {
		return fmt.Errorf("generation.top_p must be within [0, 1]")
	}
	if g.MaxOutputTokens <= 0 {
		return fmt.Errorf("generation.max_output_tokens must be positive")
	}
	if !validRenderers[c.Renderer.Type] {
		return fmt.Errorf("invalid renderer.type %q: must be one of mmdc, kroki", c.Renderer.Type)
	}
	if c.Renderer.Type == RendererMermaidCLI && c.Renderer.MmdcPath == "" {
		return fmt.Errorf("renderer.mmdc_path is required for the mmdc renderer")
	}
	if c.Renderer.Type == RendererKroki && c.Renderer.KrokiURL == "" {
		return fmt.Errorf("renderer.kroki_url is required for the kroki renderer")
	}
	if c.Renderer.TimeoutSeconds < 0 {
		return fmt.Errorf("renderer.timeout_seconds must be non-negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must be non-negative")
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
