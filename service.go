package cloudpad

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// FileService implements the file operations exposed over HTTP on top of a
// Bucket: list, get, put, delete and rename.
type FileService struct {
	bucket Bucket
}

func NewFileService(bucket Bucket) (*FileService, error) {
	if bucket == nil {
		return nil, errors.New("new file service: bucket cannot be nil")
	}
	return &FileService{bucket: bucket}, nil
}

// List enumerates all objects. No ordering is imposed beyond what the
// bucket returns.
func (s *FileService) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	items, err := s.bucket.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	if items == nil {
		items = []ObjectInfo{}
	}

	return items, nil
}

// Get returns the object at key. The caller must close the returned Object.
func (s *FileService) Get(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, fmt.Errorf("get file: %w", err)
	}

	if !IsValidKey(key) {
		return Object{}, fmt.Errorf("get file: %w: key cannot be empty", ErrInvalidInput)
	}

	obj, err := s.bucket.Get(ctx, key)
	if err != nil {
		return Object{}, fmt.Errorf("get file %s: %w", key, err)
	}

	if obj.ContentType == "" {
		obj.ContentType = DefaultContentType
	}

	return obj, nil
}

// Put writes content at key. An empty content type is stored as
// DefaultContentType. size is the content length, or -1 when unknown.
func (s *FileService) Put(ctx context.Context, key string, content io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, fmt.Errorf("put file: %w", err)
	}

	if !IsValidKey(key) {
		return ObjectInfo{}, fmt.Errorf("put file: %w: key cannot be empty", ErrInvalidInput)
	}

	if content == nil {
		return ObjectInfo{}, fmt.Errorf("put file %s: %w: missing body", key, ErrInvalidInput)
	}

	info, err := s.bucket.Put(ctx, key, content, size, opts.WithDefaults())
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put file %s: %w", key, err)
	}

	return info, nil
}

// Delete removes key. The prior existence of key is not verified.
func (s *FileService) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if !IsValidKey(key) {
		return fmt.Errorf("delete file: %w: key cannot be empty", ErrInvalidInput)
	}

	if err := s.bucket.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete file %s: %w", key, err)
	}

	return nil
}

// Rename moves the object at oldKey to newKey by copying content and
// metadata, then deleting oldKey.
//
// The operation is three sequential bucket calls with no transaction:
//  1. Get oldKey (ErrNotFound if it does not exist)
//  2. Put the same content, content type, cache control and custom metadata at newKey
//  3. Delete oldKey
//
// Renaming a key onto itself is a no-op. There is no rollback: if step 3
// fails, both keys hold the object and the error is returned; callers detect
// the duplicate by listing again.
func (s *FileService) Rename(ctx context.Context, oldKey, newKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}

	if !IsValidKey(oldKey) || !IsValidKey(newKey) {
		return fmt.Errorf("rename file: %w: oldKey and newKey are required", ErrInvalidInput)
	}

	if oldKey == newKey {
		return nil
	}

	obj, err := s.bucket.Get(ctx, oldKey)
	if err != nil {
		return fmt.Errorf("rename file %s: %w", oldKey, err)
	}
	defer func() { _ = obj.Close() }()

	opts := PutOptions{
		ContentType:    obj.ContentType,
		CacheControl:   obj.CacheControl,
		CustomMetadata: obj.CustomMetadata,
	}

	if _, err := s.bucket.Put(ctx, newKey, obj.Body, obj.Size, opts.WithDefaults()); err != nil {
		return fmt.Errorf("rename file %s to %s: copy failed: %w", oldKey, newKey, err)
	}

	if err := s.bucket.Delete(ctx, oldKey); err != nil {
		return fmt.Errorf("rename file %s to %s: copied but delete of source failed: %w", oldKey, newKey, err)
	}

	return nil
}
