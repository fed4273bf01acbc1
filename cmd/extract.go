package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract the first fenced diagram block from text",
	Long: `Reads text from the file argument or stdin and prints the interior of the
first fenced block tagged with the configured language. Exits with status 1
when there is none. No network calls are made.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		if language == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			language = cfg.Language
		}

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			in = f
		}

		raw, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		source, ok := flowchart.NewExtractor(language).Extract(string(raw))
		if !ok {
			return fmt.Errorf("no ```%s block found", language)
		}
		fmt.Fprintln(cmd.OutOrStdout(), source)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("language", "", "fence language tag (defaults to the configured language)")
	rootCmd.AddCommand(extractCmd)
}
