package cmd

import (
	"github.com/spf13/cobra"
)

// NewPatternsCommand creates the 'pilot patterns' parent command
func NewPatternsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Pattern memory commands",
		Long: `Commands for viewing and managing pattern memory.

Pattern memory records approaches that succeeded during execution and
raises confidence for similar steps in future plans.`,
	}

	// Add subcommands
	cmd.AddCommand(newPatternsShowCommand())
	cmd.AddCommand(newPatternsStatsCommand())
	cmd.AddCommand(newPatternsExportCommand())
	cmd.AddCommand(newPatternsImportCommand())
	cmd.AddCommand(newPatternsClearCommand())

	return cmd
}

// addPatternStoreFlags registers the flags every patterns subcommand shares.
func addPatternStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .pilot/config.yaml)")
	cmd.Flags().String("log-level", "", "Logging verbosity (trace, debug, info, warn, error)")
}
