package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/flowgen/internal/config"
	"github.com/ziadkadry99/flowgen/internal/db"
	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/journal"
	"github.com/ziadkadry99/flowgen/internal/llm"
	"github.com/ziadkadry99/flowgen/internal/logger"
	"github.com/ziadkadry99/flowgen/internal/render"
)

// loadConfig loads and validates the config and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `flowgen init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger.Init(level, cfg.Log.Format, os.Stderr)
	return cfg, nil
}

// pipeline holds everything a generator is built from.
type pipeline struct {
	cfg       *config.Config
	completer *flowchart.Completer
	extractor *flowchart.Extractor
	renderer  render.Renderer
	database  *db.DB
	journal   *journal.Store
}

// buildPipeline creates the provider, completer, extractor, renderer and,
// when enabled, the journal described by cfg.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)

	renderer, err := createRendererFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	params := flowchart.Params{
		Model:           cfg.Model,
		Temperature:     cfg.Generation.Temperature,
		TopK:            cfg.Generation.TopK,
		TopP:            cfg.Generation.TopP,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
	}

	p := &pipeline{
		cfg:       cfg,
		completer: flowchart.NewCompleter(provider, params, cfg.Language),
		extractor: flowchart.NewExtractor(cfg.Language),
		renderer:  renderer,
	}

	if cfg.Journal.Enabled {
		database, err := db.Open(cfg.Journal.Path)
		if err != nil {
			// The journal is optional; generation still works without it.
			logger.Warnf("journal disabled: %v", err)
		} else {
			p.database = database
			p.journal = journal.NewStore(database)
		}
	}

	return p, nil
}

// newGenerator returns a generator wired to the pipeline plus opts.
func (p *pipeline) newGenerator(opts ...flowchart.Option) *flowchart.Generator {
	var base []flowchart.Option
	if p.journal != nil {
		base = append(base, flowchart.WithRecorder(p.journal))
	}
	if !llm.RequiresAPIKey(string(p.cfg.Provider)) {
		base = append(base, flowchart.WithoutAPIKey())
	}
	return flowchart.NewGenerator(p.completer, p.extractor, p.renderer, append(base, opts...)...)
}

func (p *pipeline) Close() {
	if p.database != nil {
		p.database.Close()
	}
}

// createRendererFromConfig creates the rendering backend selected in cfg.
func createRendererFromConfig(cfg *config.Config) (render.Renderer, error) {
	timeout := time.Duration(cfg.Renderer.TimeoutSeconds) * time.Second
	switch cfg.Renderer.Type {
	case config.RendererMermaidCLI:
		if cfg.Language != "mermaid" {
			return nil, fmt.Errorf("the mmdc renderer only supports mermaid, use renderer.type kroki for %s", cfg.Language)
		}
		return render.NewMermaidCLI(cfg.Renderer.MmdcPath, timeout), nil
	case config.RendererKroki:
		return render.NewKroki(cfg.Renderer.KrokiURL, cfg.Language, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported renderer: %s", cfg.Renderer.Type)
	}
}

// resolveAPIKey returns flagValue, or the provider's conventional
// environment variable when the flag is empty.
func resolveAPIKey(flagValue string, provider config.ProviderType) string {
	if flagValue != "" {
		return flagValue
	}
	if env := config.APIKeyEnvVar(provider); env != "" {
		return os.Getenv(env)
	}
	return ""
}
