package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/config"
	"github.com/cloudpad/cloudpad/database"
	"github.com/cloudpad/cloudpad/filesystem"
	"github.com/cloudpad/cloudpad/memory"
	"github.com/cloudpad/cloudpad/minio"
	"github.com/cloudpad/cloudpad/s3"
)

// openBucket builds the bucket selected by cfg.Bucket.Type. The returned
// close function releases database and storage handles.
func openBucket(ctx context.Context, cfg *config.Config) (cloudpad.Bucket, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Bucket.Type {
	case config.BucketMemory:
		slog.Warn("using in-memory bucket, contents are lost on exit")
		return memory.New(memory.WithMaxObjectSize(cfg.Server.MaxUploadSize)), noop, nil

	case config.BucketLocal:
		bucket, closeFn, err := openLocalBucket(ctx, cfg, cfg.Database.AutoMigrate)
		if err != nil {
			return nil, nil, err
		}
		return bucket, closeFn, nil

	case config.BucketS3:
		bucket, err := s3.New(ctx, cfg.S3.Client())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using s3 bucket", "bucket", cfg.S3.Bucket, "region", cfg.S3.Region, "endpoint", cfg.S3.Endpoint)
		return bucket, noop, nil

	case config.BucketMinIO:
		bucket, err := minio.New(ctx, cfg.MinIO.Client())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using minio bucket", "bucket", cfg.MinIO.Bucket, "endpoint", cfg.MinIO.Endpoint)
		return bucket, noop, nil

	default:
		return nil, nil, fmt.Errorf("open bucket: unsupported bucket type: %q", cfg.Bucket.Type)
	}
}

// openLocalBucket connects the metadata database, optionally migrates it,
// validates the schema and opens the storage directory.
func openLocalBucket(ctx context.Context, cfg *config.Config, migrate bool) (*cloudpad.LocalBucket, func() error, error) {
	db, err := database.Connect(ctx, cfg.Database.Connection())
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err = db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if migrate {
		if err = db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete")
	}

	if err = db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("connected to database", "type", cfg.Database.Type)

	storage, closeStorage, err := filesystem.Open(cfg.Storage.Path)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	bucket, err := cloudpad.NewLocalBucket(db.GetRepo(), storage, cloudpad.LocalBucketConfig{
		CleanupTimeout: time.Duration(cfg.Storage.CleanupTimeout) * time.Second,
	})
	if err != nil {
		_ = closeStorage()
		_ = db.Close()
		return nil, nil, err
	}

	closeFn := func() error {
		return errors.Join(closeStorage(), db.Close())
	}

	slog.Info("using local bucket", "path", cfg.Storage.Path)
	return bucket, closeFn, nil
}

// storageExists reports an error when the local storage path is missing.
func storageExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("storage directory does not exist: %s", path)
	}
	return nil
}
