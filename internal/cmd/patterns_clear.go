package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// newPatternsClearCommand creates the 'pilot patterns clear' command
func newPatternsClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear pattern memory",
		Long: `Delete every remembered pattern and persist the empty set.

Asks for confirmation unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: runPatternsClear,
	}

	addPatternStoreFlags(cmd)
	cmd.Flags().Bool("force", false, "Skip the confirmation prompt")

	return cmd
}

// runPatternsClear executes the clear command
func runPatternsClear(cmd *cobra.Command, args []string) error {
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

	if store.Len() == 0 {
		fmt.Fprintf(output, "No patterns recorded yet.\n")
		return nil
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force {
		fmt.Fprintf(output, "WARNING: This will delete all %d remembered pattern(s).\n", store.Len())
		if !confirmAction(cmd.InOrStdin(), output) {
			fmt.Fprintf(output, "Operation cancelled.\n")
			return nil
		}
	}

	removed := store.Clear(cmd.Context())
	fmt.Fprintf(output, "Cleared %d pattern(s).\n", removed)
	return nil
}

// confirmAction asks for a yes/no confirmation on the given streams.
func confirmAction(in io.Reader, output io.Writer) bool {
	fmt.Fprintf(output, "Continue? [y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
