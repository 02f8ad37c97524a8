package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for pilot
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pilot",
		Short: "Confidence-based task planning and execution",
		Long: `Pilot decomposes natural-language task descriptions into executable
steps, scores each step's confidence against a memory of previously
successful approaches, and pre-generates fallback plans for risky steps
before anything runs.

During execution, failed steps fall back to their alternatives
automatically, high-risk steps are gated behind operator approval, and
successful approaches are remembered for future plans.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewPatternsCommand())

	return cmd
}
