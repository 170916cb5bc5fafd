package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize metadata database from storage files",
	Long: `Scan the storage directory and populate the metadata database
with entries for all existing files. Only the local bucket keeps a
metadata database. This is useful when:
  - Setting up cloudpad with existing files
  - Recovering metadata after database loss`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	if cfg.Bucket.Type != config.BucketLocal {
		return fmt.Errorf("init: bucket type %q has no metadata database", cfg.Bucket.Type)
	}

	if err = storageExists(cfg.Storage.Path); err != nil {
		return err
	}

	bucket, closeBucket, err := openLocalBucket(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = closeBucket() }()

	slog.Info("scanning storage directory", "path", cfg.Storage.Path)

	total, err := bucket.Populate(ctx)
	if err != nil {
		return fmt.Errorf("populate: %w", err)
	}

	slog.Info("initialization complete", "files_indexed", total)
	return nil
}
