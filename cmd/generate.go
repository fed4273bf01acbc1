package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowgen/internal/batch"
	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/llm"
	"github.com/ziadkadry99/flowgen/internal/progress"
	"github.com/ziadkadry99/flowgen/internal/render"
)

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Generate a flowchart from a description",
	Long: `Sends the description to the configured model, extracts the diagram code
from the answer and renders it. The description is taken from the arguments,
or from stdin when it is "-" or omitted. With --batch, every matching prompt
file is rendered into --out-dir.

The API key comes from --api-key or the provider's environment variable
(GOOGLE_API_KEY, OPENAI_API_KEY). It is never written anywhere.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("api-key", "", "API key for the provider (defaults to the provider's env var)")
	generateCmd.Flags().StringP("out", "o", "", "write the SVG to this file")
	generateCmd.Flags().String("source-out", "", "write the diagram source to this file")
	generateCmd.Flags().String("print", "source", "what to print to stdout: source, svg or none")
	generateCmd.Flags().String("batch", "", "glob of prompt files to render (** supported)")
	generateCmd.Flags().StringSlice("exclude", nil, "glob patterns to skip in batch mode")
	generateCmd.Flags().String("out-dir", "diagrams", "output directory for batch mode")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	flagKey, _ := cmd.Flags().GetString("api-key")
	apiKey := resolveAPIKey(flagKey, cfg.Provider)
	if apiKey == "" && llm.RequiresAPIKey(string(cfg.Provider)) && verbose {
		fmt.Fprintf(os.Stderr, "No API key given. Pass --api-key or set an environment variable for %s.\n", cfg.Provider)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := progress.NewReporter()

	if pattern, _ := cmd.Flags().GetString("batch"); pattern != "" {
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		outDir, _ := cmd.Flags().GetString("out-dir")
		return runBatch(ctx, p, reporter, apiKey, pattern, exclude, outDir)
	}

	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	gen := p.newGenerator(flowchart.WithObserver(reporter.State))
	reporter.Start(1)
	reporter.Update(1, "Generating")
	c, err := gen.Generate(ctx, apiKey, prompt)
	reporter.Finish()
	if err != nil {
		return err
	}

	if !c.OK() {
		fmt.Fprintf(os.Stderr, "%s\n", failureHeading(c, cfg.Language))
		fmt.Fprintf(os.Stderr, "%s\n", c.Message)
		if c.Outcome == flowchart.OutcomeRenderFailed && c.Source != "" {
			fmt.Fprintf(os.Stderr, "\nRejected source:\n%s\n", c.Source)
		}
		return fmt.Errorf("generation failed (%s)", c.Outcome)
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := os.WriteFile(out, []byte(c.Markup), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
	}
	if out, _ := cmd.Flags().GetString("source-out"); out != "" {
		if err := os.WriteFile(out, []byte(c.Source+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
	}

	switch mode, _ := cmd.Flags().GetString("print"); mode {
	case "svg":
		fmt.Fprintln(cmd.OutOrStdout(), c.Markup)
	case "none":
	default:
		fmt.Fprintln(cmd.OutOrStdout(), c.Source)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "%s/%s: %d input + %d output tokens in %s (est. $%.6f)\n",
			c.Provider, c.Model, c.InputTokens, c.OutputTokens, c.Duration.Round(1e6),
			llm.EstimateCost(c.Model, c.InputTokens, c.OutputTokens))
	}
	return nil
}

func runBatch(ctx context.Context, p *pipeline, reporter progress.Reporter, apiKey, pattern string, exclude []string, outDir string) error {
	files, err := batch.Discover(batch.Options{
		RootDir: ".",
		Include: []string{pattern},
		Exclude: exclude,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no prompt files match %q", pattern)
	}

	runner := &batch.Runner{
		Gen:       p.newGenerator(flowchart.WithObserver(reporter.State)),
		APIKey:    apiKey,
		OutDir:    outDir,
		SourceExt: render.SourceExtension(p.cfg.Language),
		Reporter:  reporter,
	}
	results, err := runner.Run(ctx, files)
	for _, r := range results {
		if r.Cycle.OK() {
			fmt.Fprintf(os.Stderr, "  ok    %s -> %s\n", r.File.RelPath, strings.Join(r.Outputs, ", "))
		} else {
			fmt.Fprintf(os.Stderr, "  FAIL  %s: %s\n", r.File.RelPath, r.Cycle.Message)
		}
	}
	return err
}

// readPrompt joins args, or reads stdin when there are none or the only one is "-".
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	return string(data), nil
}

// failureHeading is the one-line title shown above a failure message.
func failureHeading(c *flowchart.Cycle, language string) string {
	switch c.Outcome {
	case flowchart.OutcomeValidationFailed:
		return "Missing input"
	case flowchart.OutcomeTransportFailed:
		return "Network error"
	case flowchart.OutcomeAPIFailed:
		return "API error"
	case flowchart.OutcomeExtractionFailed:
		return "Nothing to render"
	case flowchart.OutcomeRenderFailed:
		if language == "" {
			return "Syntax Error"
		}
		return strings.ToUpper(language[:1]) + language[1:] + " Syntax Error"
	default:
		return "Error"
	}
}
