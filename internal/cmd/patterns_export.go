package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newPatternsExportCommand creates the 'pilot patterns export' command
func newPatternsExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [output-file]",
		Short: "Export pattern memory to JSON",
		Long: `Export the full pattern set as a portable JSON blob, suitable for
backup or for importing into another workspace.

Writes to stdout when no output file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPatternsExport,
	}

	addPatternStoreFlags(cmd)

	return cmd
}

// runPatternsExport executes the export command
func runPatternsExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := openPatternStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	data, err := store.Export()
	if err != nil {
		return fmt.Errorf("export patterns: %w", err)
	}

	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pattern(s) to %s\n", store.Len(), args[0])
	return nil
}
