package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad/clientcli"
)

var listPrefix string

var listCmd = &cobra.Command{
	Use:     "list [prefix]",
	Aliases: []string{"ls"},
	Short:   "List files on the server",
	Long: `List every file on the server with its size, upload time and the
editor language guessed from its extension.

Examples:
  cloudpad-cli list
  cloudpad-cli list docs/
  cloudpad-cli list --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "filter by key prefix")
}

func runList(cmd *cobra.Command, args []string) error {
	prefix := listPrefix
	if len(args) > 0 {
		prefix = args[0]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.List(cmd.Context(), clientcli.ListOptions{Prefix: prefix})
	if err != nil {
		return err
	}

	return getFormatter().FormatList(os.Stdout, result)
}
