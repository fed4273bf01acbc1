package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it. The API key is never asked for or stored.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to flowgen! Let's configure diagram generation.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"google", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	rendererPrompt := promptui.Select{
		Label: "Select diagram renderer",
		Items: []string{
			"mmdc  - local mermaid-cli",
			"kroki - Kroki HTTP service",
		},
	}
	rendererIdx, _, err := rendererPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("renderer selection: %w", err)
	}
	if rendererIdx == 1 {
		cfg.Renderer.Type = RendererKroki
		krokiPrompt := promptui.Prompt{
			Label:   "Kroki URL",
			Default: cfg.Renderer.KrokiURL,
		}
		if cfg.Renderer.KrokiURL, err = krokiPrompt.Run(); err != nil {
			return nil, fmt.Errorf("kroki url: %w", err)
		}
	}

	portPrompt := promptui.Prompt{
		Label:   "Port for `flowgen serve`",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: pass --api-key or set %s before running flowgen generate.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
