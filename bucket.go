package cloudpad

import (
	"context"
	"io"
)

// Bucket is the object-storage capability the file API is built on.
// Implementations translate a missing key into ErrNotFound and must be safe
// for concurrent use; concurrent writes to one key are last-write-wins.
type Bucket interface {
	// List returns every object in the bucket, in whatever order the store
	// yields them.
	List(ctx context.Context) ([]ObjectInfo, error)

	// Get returns the object stored at key. The caller closes Object.Body.
	// Returns ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) (Object, error)

	// Put writes body at key, replacing any existing object.
	// size is the body length in bytes, or -1 when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MetaDataRepo persists object metadata for LocalBucket.
//
// All methods accept a context for cancellation and timeout control.
type MetaDataRepo interface {
	// Get retrieves metadata for key. Returns ErrNotFound if key doesn't exist.
	Get(ctx context.Context, key string) (MetaData, error)

	// Upsert creates or updates metadata for an object. The bool result is
	// true when a new entry was created.
	Upsert(ctx context.Context, entry ObjectEntry) (MetaData, bool, error)

	// Delete removes metadata for key. Returns ErrNotFound if key doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns all metadata entries ordered by key.
	List(ctx context.Context) ([]MetaData, error)
}

// FileStorage defines the interface for physical file storage operations
// used by LocalBucket.
type FileStorage interface {
	// Get opens the file at path for reading.
	// Returns ErrNotFound if the file doesn't exist.
	Get(ctx context.Context, path string) (io.ReadSeekCloser, error)

	// Write stores content at path, overwriting any existing file, and
	// returns the byte count and a content hash etag.
	Write(ctx context.Context, path string, content io.Reader) (SaveResult, error)

	// Delete removes the file at path. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, path string) error

	// List walks the storage tree and returns every file with its size, etag
	// and a content type detected from the extension.
	List(ctx context.Context) ([]ObjectEntry, error)
}
