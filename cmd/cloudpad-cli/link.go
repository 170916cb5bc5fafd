package main

import (
	"os"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link <key>",
	Short: "Print the direct-download URL for a file",
	Long: `Print the direct-download URL for a file. The URL embeds the access
token, so anyone holding it can read the file.

Examples:
  cloudpad-cli link docs/notes.md
  curl -OJ "$(cloudpad-cli link docs/notes.md)"`,
	Args: cobra.ExactArgs(1),
	RunE: runLink,
}

func runLink(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	link, err := client.Link(args[0])
	if err != nil {
		return err
	}

	return getFormatter().FormatLink(os.Stdout, args[0], link)
}
