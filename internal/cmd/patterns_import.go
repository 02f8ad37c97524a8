package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newPatternsImportCommand creates the 'pilot patterns import' command
func newPatternsImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <input-file>",
		Short: "Import pattern memory from JSON",
		Long: `Replace the pattern set with a previously exported JSON blob.

Validation is all-or-nothing: a single malformed record rejects the
entire import and leaves the existing set untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: runPatternsImport,
	}

	addPatternStoreFlags(cmd)

	return cmd
}

// runPatternsImport executes the import command
func runPatternsImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	store, closeStore, err := openPatternStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Import(cmd.Context(), data); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d pattern(s) from %s\n", store.Len(), args[0])
	return nil
}
