package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// RendererType identifies the diagram rendering backend.
type RendererType string

const (
	RendererMermaidCLI RendererType = "mmdc"
	RendererKroki      RendererType = "kroki"
)

// Config is the top-level flowgen configuration, corresponding to .flowgen.yml.
// It never holds an API key.
type Config struct {
	Provider     ProviderType     `yaml:"provider" koanf:"provider"`
	Model        string           `yaml:"model" koanf:"model"`
	BaseURL      string           `yaml:"base_url" koanf:"base_url"`
	Generation   GenerationConfig `yaml:"generation" koanf:"generation"`
	Language     string           `yaml:"language" koanf:"language"`
	Renderer     RendererConfig   `yaml:"renderer" koanf:"renderer"`
	Server       ServerConfig     `yaml:"server" koanf:"server"`
	Log          LogConfig        `yaml:"log" koanf:"log"`
	Journal      JournalConfig    `yaml:"journal" koanf:"journal"`
	RateLimitRPM int              `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
}

// GenerationConfig holds the sampling parameters sent with every completion.
type GenerationConfig struct {
	Temperature     float64 `yaml:"temperature" koanf:"temperature"`
	TopK            int     `yaml:"top_k" koanf:"top_k"`
	TopP            float64 `yaml:"top_p" koanf:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens" koanf:"max_output_tokens"`
}

// RendererConfig selects and configures the rendering backend.
type RendererConfig struct {
	Type           RendererType `yaml:"type" koanf:"type"`
	MmdcPath       string       `yaml:"mmdc_path" koanf:"mmdc_path"`
	KrokiURL       string       `yaml:"kroki_url" koanf:"kroki_url"`
	TimeoutSeconds int          `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// ServerConfig holds settings for `flowgen serve`.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// JournalConfig controls the cycle outcome journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Path    string `yaml:"path" koanf:"path"`
}
