package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newPatternsStatsCommand creates the 'pilot patterns stats' command
func newPatternsStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pattern memory statistics",
		Long: `Display aggregate pattern memory statistics:
  - Number of remembered patterns
  - Average confidence and success rate
  - Total recorded usage`,
		Args: cobra.NoArgs,
		RunE: runPatternsStats,
	}

	addPatternStoreFlags(cmd)

	return cmd
}

// runPatternsStats executes the stats command
func runPatternsStats(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := openPatternStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	stats := store.Stats()

	bold := color.New(color.Bold)
	fmt.Fprintf(output, "%s\n\n", bold.Sprint("Pattern Memory"))
	fmt.Fprintf(output, "Backend:          %s (%s)\n", cfg.Patterns.Backend, cfg.Patterns.Path)
	fmt.Fprintf(output, "Patterns:         %d / %d\n", stats.Count, cfg.Patterns.Capacity)
	if stats.Count > 0 {
		fmt.Fprintf(output, "Avg confidence:   %.1f\n", stats.AvgConfidence)
		fmt.Fprintf(output, "Avg success rate: %.1f%%\n", stats.AvgSuccessRate)
		fmt.Fprintf(output, "Total usage:      %d\n", stats.TotalUsage)
	}
	if stats.Degraded {
		fmt.Fprintf(output, "\n%s pattern memory is running in-memory only; the persisted set could not be loaded\n",
			color.YellowString("warning:"))
	}
	return nil
}
