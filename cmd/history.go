package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowgen/internal/db"
	"github.com/ziadkadry99/flowgen/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent generation cycles from the journal",
	Long:  `Lists journaled cycles: outcome, provider, tokens, estimated cost and duration. Prompts, keys and diagrams are never journaled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Journal.Enabled {
			return fmt.Errorf("the journal is disabled (journal.enabled: false)")
		}
		if _, err := os.Stat(cfg.Journal.Path); os.IsNotExist(err) {
			fmt.Println("No generations journaled yet.")
			return nil
		}

		database, err := db.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer database.Close()
		store := journal.NewStore(database)

		limit, _ := cmd.Flags().GetInt("limit")
		outcome, _ := cmd.Flags().GetString("outcome")
		filter := journal.QueryFilter{Outcome: outcome, Limit: limit}
		if d, _ := cmd.Flags().GetDuration("since"); d > 0 {
			since := time.Now().Add(-d)
			filter.Since = &since
		}

		ctx := context.Background()
		if summary, _ := cmd.Flags().GetBool("summary"); summary {
			sum, err := store.Summarize(ctx, filter)
			if err != nil {
				return err
			}
			printSummary(sum)
			return nil
		}

		entries, err := store.Query(ctx, filter)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No matching generations.")
			return nil
		}

		fmt.Printf("%-19s  %-17s  %-8s  %-24s  %8s  %8s  %10s\n",
			"STARTED", "OUTCOME", "PROVIDER", "MODEL", "TOKENS", "TIME", "COST")
		for _, e := range entries {
			fmt.Printf("%-19s  %-17s  %-8s  %-24s  %8d  %8s  %10s\n",
				e.StartedAt.Local().Format(time.DateTime),
				e.Outcome,
				e.Provider,
				truncate(e.Model, 24),
				e.InputTokens+e.OutputTokens,
				e.Duration.Round(10*time.Millisecond),
				fmt.Sprintf("$%.5f", e.CostUSD),
			)
		}
		return nil
	},
}

func printSummary(sum *journal.Summary) {
	fmt.Printf("Generations: %d\n", sum.Total)
	for _, o := range []string{"rendered", "validation_failed", "transport_failed", "api_failed", "extraction_failed", "render_failed"} {
		if n := sum.ByOutcome[o]; n > 0 {
			fmt.Printf("  %-18s %d\n", o, n)
		}
	}
	fmt.Printf("Tokens:      %d in / %d out\n", sum.InputTokens, sum.OutputTokens)
	fmt.Printf("Est. cost:   $%.4f\n", sum.CostUSD)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
	historyCmd.Flags().String("outcome", "", "only show this outcome")
	historyCmd.Flags().Duration("since", 0, "only show cycles newer than this (e.g. 24h)")
	historyCmd.Flags().Bool("summary", false, "print totals instead of entries")
	rootCmd.AddCommand(historyCmd)
}
