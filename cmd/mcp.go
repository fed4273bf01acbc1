package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowgen/internal/config"
	mcpserver "github.com/ziadkadry99/flowgen/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing flowchart
generation tools for AI agents. Tool calls may pass api_key; otherwise the
provider's environment variable is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, err := buildPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		mcpserver.Version = Version

		apiKey := resolveAPIKey("", cfg.Provider)
		if env := config.APIKeyEnvVar(cfg.Provider); env != "" && apiKey == "" {
			fmt.Fprintf(os.Stderr, "Note: %s is not set; tool calls must pass api_key.\n", env)
		}

		fmt.Fprintf(os.Stderr, "flowgen MCP server started on stdio (provider=%s, renderer=%s)\n", cfg.Provider, p.renderer.Name())

		srv := mcpserver.NewServer(p.newGenerator(), p.extractor, apiKey)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
