package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad/clientcli"
)

var renameCmd = &cobra.Command{
	Use:     "rename <old-key> <new-key>",
	Aliases: []string{"mv"},
	Short:   "Rename a file on the server",
	Long: `Rename a file. Content type, cache control and custom metadata move
with it. An existing file at the new key is replaced.`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Rename(cmd.Context(), clientcli.RenameOptions{OldKey: args[0], NewKey: args[1]})
	if err != nil {
		return err
	}

	return getFormatter().FormatRename(os.Stdout, result)
}
