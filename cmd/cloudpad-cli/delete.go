package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad/clientcli"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <key> [key...]",
	Aliases: []string{"rm"},
	Short:   "Delete files from the server",
	Long: `Delete one or more files. Deleting a key that does not exist succeeds.

Examples:
  cloudpad-cli delete notes.md
  cloudpad-cli delete a.txt b.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{Keys: args})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return partialFailure{op: "delete"}
	}
	return nil
}
