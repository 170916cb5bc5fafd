package cloudpad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// LocalBucket is a Bucket that keeps object content in a FileStorage and
// object metadata in a MetaDataRepo.
type LocalBucket struct {
	repo           MetaDataRepo
	storage        FileStorage
	cleanupTimeout time.Duration
}

// LocalBucketConfig holds configuration options for LocalBucket.
type LocalBucketConfig struct {
	CleanupTimeout time.Duration // Timeout for cleanup operations (default: 30s)
}

func NewLocalBucket(repo MetaDataRepo, storage FileStorage, cfg LocalBucketConfig) (*LocalBucket, error) {
	if repo == nil {
		return nil, errors.New("new local bucket: metadata repo cannot be nil")
	}
	if storage == nil {
		return nil, errors.New("new local bucket: file storage cannot be nil")
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &LocalBucket{
		repo:           repo,
		storage:        storage,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Populate synchronizes metadata from the files already present in storage.
// It returns the number of files indexed.
//
// It processes files sequentially and stops at the first error; a partial run
// leaves the already processed rows in place.
func (b *LocalBucket) Populate(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("populate: %w", err)
	}

	files, listErr := b.storage.List(ctx)
	if listErr != nil {
		return 0, fmt.Errorf("populate: %w", listErr)
	}

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("populate: %w", err)
		}
		_, _, upsertErr := b.repo.Upsert(ctx, file)
		if upsertErr != nil {
			return i, fmt.Errorf("populate '%s': %w", file.Key, upsertErr)
		}
	}

	return len(files), nil
}

func (b *LocalBucket) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	rows, err := b.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	items := make([]ObjectInfo, 0, len(rows))
	for _, m := range rows {
		items = append(items, m.Info())
	}

	return items, nil
}

func (b *LocalBucket) Get(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, fmt.Errorf("get object: %w", err)
	}

	if !IsValidStoragePath(key) {
		return Object{}, fmt.Errorf("get object %s: %w: key is not a valid storage path", key, ErrInvalidInput)
	}

	m, err := b.repo.Get(ctx, key)
	if err != nil {
		return Object{}, fmt.Errorf("get object: %w", err)
	}

	f, err := b.storage.Get(ctx, m.Key)
	if err != nil {
		return Object{}, fmt.Errorf("get object: %w", err)
	}

	return Object{
		ObjectInfo:     m.Info(),
		CacheControl:   m.CacheControl,
		CustomMetadata: m.CustomMetadata,
		Body:           f,
	}, nil
}

// Put writes content to storage and upserts its metadata row. When the
// metadata write fails the stored file is removed with a detached context
// bounded by the cleanup timeout.
//
// size is ignored: the byte count comes from the storage write.
func (b *LocalBucket) Put(ctx context.Context, key string, body io.Reader, _ int64, opts PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, fmt.Errorf("put object: %w", err)
	}

	if !IsValidStoragePath(key) {
		return ObjectInfo{}, fmt.Errorf("put object %s: %w: key is not a valid storage path", key, ErrInvalidInput)
	}

	opts = opts.WithDefaults()

	saveResult, writeErr := b.storage.Write(ctx, key, body)
	if writeErr != nil {
		return ObjectInfo{}, fmt.Errorf("put object %s: write failed: %w", key, writeErr)
	}

	oe := ObjectEntry{
		Key:            key,
		Size:           saveResult.BytesWritten,
		ETag:           saveResult.ETag,
		ContentType:    opts.ContentType,
		CacheControl:   opts.CacheControl,
		CustomMetadata: opts.CustomMetadata,
	}

	m, _, upsertErr := b.repo.Upsert(ctx, oe)
	if upsertErr != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), b.cleanupTimeout)
		defer cancel()

		if delErr := b.storage.Delete(cleanupCtx, key); delErr != nil {
			return ObjectInfo{}, fmt.Errorf("put object %s: metadata upsert failed (%w) and cleanup failed: %w", key, upsertErr, delErr)
		}
		return ObjectInfo{}, fmt.Errorf("put object %s: metadata upsert failed: %w", key, upsertErr)
	}

	return m.Info(), nil
}

// Delete removes the metadata row and then the file. A key missing from
// either side is not an error.
func (b *LocalBucket) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if !IsValidStoragePath(key) {
		return fmt.Errorf("delete object %s: %w: key is not a valid storage path", key, ErrInvalidInput)
	}

	if err := b.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete object: %w", err)
	}

	if err := b.storage.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}
