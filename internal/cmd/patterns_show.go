package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newPatternsShowCommand creates the 'pilot patterns show' command
func newPatternsShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show remembered patterns",
		Long: `List remembered patterns ranked by retention score (usage, success
rate, and recency), the same ordering capacity pruning uses.`,
		Args: cobra.NoArgs,
		RunE: runPatternsShow,
	}

	addPatternStoreFlags(cmd)
	cmd.Flags().Int("limit", 10, "Maximum number of patterns to show")

	return cmd
}

// runPatternsShow executes the show command
func runPatternsShow(cmd *cobra.Command, args []string) error {
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

	limit, _ := cmd.Flags().GetInt("limit")
	patterns := store.Top(limit)
	if len(patterns) == 0 {
		fmt.Fprintf(output, "No patterns recorded yet.\n")
		return nil
	}

	bold := color.New(color.Bold)
	fmt.Fprintf(output, "%s\n\n", bold.Sprintf("Patterns (%d of %d)", len(patterns), store.Len()))

	for i, p := range patterns {
		fmt.Fprintf(output, "%2d. %s\n", i+1, p.Description)
		fmt.Fprintf(output, "    action: %s", p.ActionType)
		if p.Approach != "" {
			fmt.Fprintf(output, "  approach: %s", p.Approach)
		}
		fmt.Fprintf(output, "\n")
		fmt.Fprintf(output, "    used %d time(s), success rate %.0f%%, confidence %.0f\n",
			p.UsageCount, p.SuccessRate, p.Confidence)
		if !p.LastUsed.IsZero() {
			fmt.Fprintf(output, "    last used %s\n", formatAge(p.LastUsed))
		}
	}
	return nil
}

// formatAge renders a timestamp as a rounded "Nd ago" style age.
func formatAge(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
