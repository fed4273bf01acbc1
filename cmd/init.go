package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowgen/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize flowgen configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose a provider, model and renderer, and writes a .flowgen.yml file. API keys are never written to the file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
