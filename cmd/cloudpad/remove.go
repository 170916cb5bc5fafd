package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <key1> [key2] ...",
	Short: "Remove files from the configured bucket",
	Long: `Delete files from the configured bucket.

Examples:
  # Remove a single file
  cloudpad remove notes.md

  # Remove multiple files
  cloudpad remove a.txt b.txt c.txt

  # Remove all files with a prefix (e.g., a directory)
  cloudpad remove --prefix snippets/

  # Remove quietly (suppress per-file output)
  cloudpad remove -q notes.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var (
	removePrefix bool
	removeQuiet  bool
)

func init() {
	removeCmd.Flags().BoolVarP(&removePrefix, "prefix", "p", false, "treat arguments as prefixes and remove all matching keys")
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	bucket, closeBucket, err := openBucket(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBucket() }()

	service, err := cloudpad.NewFileService(bucket)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	items, err := service.List(ctx)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	existing := make(map[string]struct{}, len(items))
	for _, item := range items {
		existing[item.Key] = struct{}{}
	}

	targets, notFound := matchKeys(items, existing, args, removePrefix)

	removed, err := removeKeys(ctx, service, targets)
	if err != nil {
		return err
	}

	for _, key := range notFound {
		if !removeQuiet {
			slog.Warn("not found", "key", key)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", len(notFound))
	return nil
}

// matchKeys resolves arguments to existing keys. In prefix mode every key
// starting with an argument matches; a prefix matching nothing is reported
// as not found.
func matchKeys(items []cloudpad.ObjectInfo, existing map[string]struct{}, args []string, prefix bool) (targets, notFound []string) {
	seen := make(map[string]struct{})
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		targets = append(targets, key)
	}

	for _, arg := range args {
		if !prefix {
			if _, ok := existing[arg]; !ok {
				notFound = append(notFound, arg)
				continue
			}
			add(arg)
			continue
		}

		matched := false
		for _, item := range items {
			if strings.HasPrefix(item.Key, arg) {
				add(item.Key)
				matched = true
			}
		}
		if !matched {
			notFound = append(notFound, arg)
		}
	}

	return targets, notFound
}

func removeKeys(ctx context.Context, service *cloudpad.FileService, keys []string) (int, error) {
	removed := 0
	for _, key := range keys {
		if err := service.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("remove %s: %w", key, err)
		}
		removed++
		if !removeQuiet {
			slog.Info("removed", "key", key)
		}
	}
	return removed, nil
}
