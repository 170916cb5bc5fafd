package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Import files into the configured bucket",
	Long: `Import files from local paths into the configured bucket.

Each file is written under its base name, or its path relative to the
directory given with -r, optionally below a destination prefix.

Examples:
  # Add a single file
  cloudpad add /path/to/notes.md

  # Add with a destination prefix
  cloudpad add --dest snippets/ /path/to/main.go

  # Add a directory recursively
  cloudpad add -r /path/to/project

  # Skip keys that already exist
  cloudpad add --no-clobber /path/to/notes.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addDest      string
	addRecursive bool
	addNoClobber bool
	addQuiet     bool
)

func init() {
	addCmd.Flags().StringVarP(&addDest, "dest", "d", "", "destination key prefix")
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "recursively add directories")
	addCmd.Flags().BoolVarP(&addNoClobber, "no-clobber", "n", false, "skip existing keys instead of overwriting")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

// fileEntry is a file to be added with its source path and destination key.
type fileEntry struct {
	sourcePath string
	destKey    string
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	var files []fileEntry
	for _, arg := range args {
		entries, collectErr := collectFiles(arg, addRecursive, addDest)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, entries...)
	}

	if len(files) == 0 {
		slog.Info("no files to add")
		return nil
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

	added := 0
	skipped := 0

	for _, entry := range files {
		if addNoClobber {
			obj, getErr := service.Get(ctx, entry.destKey)
			if getErr == nil {
				_ = obj.Close()
				skipped++
				if !addQuiet {
					slog.Info("skipped (exists)", "key", entry.destKey)
				}
				continue
			}
			if !errors.Is(getErr, cloudpad.ErrNotFound) {
				return fmt.Errorf("add %s: %w", entry.destKey, getErr)
			}
		}

		info, putErr := putFile(cmd, service, entry)
		if putErr != nil {
			return fmt.Errorf("add %s: %w", entry.destKey, putErr)
		}

		added++
		if !addQuiet {
			slog.Info("added", "key", info.Key, "size", info.Size, "content_type", info.ContentType)
		}
	}

	slog.Info("add complete", "added", added, "skipped", skipped)
	return nil
}

func putFile(cmd *cobra.Command, service *cloudpad.FileService, entry fileEntry) (cloudpad.ObjectInfo, error) {
	f, err := os.Open(entry.sourcePath)
	if err != nil {
		return cloudpad.ObjectInfo{}, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return cloudpad.ObjectInfo{}, err
	}

	return service.Put(cmd.Context(), entry.destKey, f, stat.Size(), cloudpad.PutOptions{
		ContentType: detectContentType(entry.sourcePath),
	})
}

// collectFiles gathers files from a path, optionally recursively.
func collectFiles(path string, recursive bool, destPrefix string) ([]fileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	destPrefix = strings.TrimPrefix(destPrefix, "/")
	if destPrefix != "" && !strings.HasSuffix(destPrefix, "/") {
		destPrefix += "/"
	}

	if !info.IsDir() {
		return []fileEntry{{sourcePath: path, destKey: destPrefix + filepath.Base(path)}}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to add recursively)", path)
	}

	var entries []fileEntry
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(path, walkPath)
		if relErr != nil {
			return relErr
		}

		entries = append(entries, fileEntry{
			sourcePath: walkPath,
			destKey:    destPrefix + filepath.ToSlash(relPath),
		})
		return nil
	})

	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}

// detectContentType determines the MIME type from a file's extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return cloudpad.DefaultContentType
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return cloudpad.DefaultContentType
	}

	return contentType
}
