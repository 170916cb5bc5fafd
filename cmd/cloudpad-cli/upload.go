package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad/clientcli"
)

var (
	uploadRecursive    bool
	uploadContentType  string
	uploadCacheControl string
	uploadMeta         []string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [key]",
	Short: "Upload files to the server",
	Long: `Upload a file, or a directory with -r, to the server.

Without a key the local path, cleaned and made relative, is used. A key
given on the command line is sent as is: "/a.txt" and "a.txt" are two
different files.
With -r the key is a prefix for every file below the directory.

Examples:
  cloudpad-cli upload ./notes.md
  cloudpad-cli upload ./notes.md docs/notes.md
  cloudpad-cli upload -r ./snippets snippets/
  cloudpad-cli upload --meta author=pat --cache-control no-cache ./a.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload directory recursively")
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "override content-type")
	uploadCmd.Flags().StringVar(&uploadCacheControl, "cache-control", "", "Cache-Control stored with the file")
	uploadCmd.Flags().StringSliceVar(&uploadMeta, "meta", nil, "custom metadata as name=value (repeatable)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	meta, err := parseMeta(uploadMeta)
	if err != nil {
		return err
	}

	opts := clientcli.UploadOptions{
		LocalPath:    args[0],
		ContentType:  uploadContentType,
		CacheControl: uploadCacheControl,
		Metadata:     meta,
		Recursive:    uploadRecursive,
	}
	if len(args) > 1 {
		opts.Key = args[1]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Upload(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return partialFailure{op: "upload"}
		}
	}
	return nil
}

func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --meta %q: expected name=value", pair)
		}
		meta[strings.TrimSpace(name)] = value
	}
	return meta, nil
}
