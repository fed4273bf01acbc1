package cmd

import "github.com/spf13/cobra"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "flowgen",
	Short: "Turn natural-language descriptions into rendered flowcharts",
	Long: `Flowgen sends a description of a process to a language model, extracts
the diagram code from its answer and renders it to SVG. Use it from the
command line, through the browser UI (flowgen serve) or from AI agents
over MCP (flowgen mcp).`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".flowgen.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

