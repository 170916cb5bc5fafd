// Package filesystem provides the content half of the local cloudpad bucket.
// Files live under an os.Root so keys cannot escape the storage directory.
// Writes go through a temp file and a rename, etags are SHA256 digests and
// content types are detected from the file extension.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/cloudpad/cloudpad"
	"github.com/google/uuid"
)

// tmpPrefix marks in-flight writes. List skips names carrying it.
const tmpPrefix = ".cloudpad-tmp-"

// Store provides file system storage operations keyed by slash-separated keys.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Open creates dir if needed and returns a Store rooted at it together with
// a function that releases the root.
func Open(dir string) (*Store, func() error, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	return NewFileStorage(root), root.Close, nil
}

// Get opens a file for reading. Returns cloudpad.ErrNotFound if the file does not exist.
func (s *Store) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cloudpad.ErrNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, cloudpad.ErrNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content at key using a temp file and rename.
// It creates intermediate directories as needed and returns the number of
// bytes written and the SHA256 etag. The copy stops when ctx is cancelled.
func (s *Store) Write(ctx context.Context, key string, content io.Reader) (cloudpad.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cloudpad.SaveResult{}, ctxErr
	}

	if err := s.checkLayout(key); err != nil {
		return cloudpad.SaveResult{}, err
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return cloudpad.SaveResult{}, fmt.Errorf("create temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	written, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return cloudpad.SaveResult{}, fmt.Errorf("copy file contents: %w", err)
	}

	if err = t.Sync(); err != nil {
		return cloudpad.SaveResult{}, fmt.Errorf("sync written file: %w", err)
	}

	if err = t.Close(); err != nil {
		return cloudpad.SaveResult{}, fmt.Errorf("close written file: %w", err)
	}

	if dir := path.Dir(key); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return cloudpad.SaveResult{}, fmt.Errorf("create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return cloudpad.SaveResult{}, fmt.Errorf("rename file: %w", renameErr)
	}

	success = true

	return cloudpad.SaveResult{BytesWritten: written, ETag: hex.EncodeToString(h.Sum(nil))}, nil
}

// checkLayout rejects keys that need a path to be a file and a directory at
// once: a parent of key that is a stored file, or key itself being a
// directory that holds other keys.
func (s *Store) checkLayout(key string) error {
	segments := strings.Split(key, "/")
	for i := 1; i < len(segments); i++ {
		parent := strings.Join(segments[:i], "/")
		info, err := s.root.Stat(parent)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", parent, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: key %q is below existing file %q", cloudpad.ErrInvalidInput, key, parent)
		}
	}

	info, err := s.root.Stat(key)
	if err == nil && info.IsDir() {
		return fmt.Errorf("%w: key %q is a directory of other keys", cloudpad.ErrInvalidInput, key)
	}
	return nil
}

// Delete removes a file and any parent directories it leaves empty.
// Returns cloudpad.ErrNotFound if the file does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.root.Remove(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cloudpad.ErrNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}

	s.pruneEmptyDirs(path.Dir(key))

	return nil
}

// pruneEmptyDirs removes dir and its ancestors up to the root while they are
// empty. Remove refuses non-empty directories, which ends the walk.
func (s *Store) pruneEmptyDirs(dir string) {
	for dir != "." && dir != "/" && dir != "" {
		if err := s.root.Remove(dir); err != nil {
			return
		}
		dir = path.Dir(dir)
	}
}

// List recursively walks the root directory and returns every file with its
// key, size, SHA256 etag and detected content type. Temp files from in-flight
// writes are skipped. It reads every file and is meant for one-off re-indexing.
func (s *Store) List(ctx context.Context) ([]cloudpad.ObjectEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := []cloudpad.ObjectEntry{}

	err := fs.WalkDir(s.root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}

		entry, err := s.describe(p, d)
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("list files: %w", err)
	}

	return entries, nil
}

func (s *Store) describe(key string, d fs.DirEntry) (cloudpad.ObjectEntry, error) {
	info, err := d.Info()
	if err != nil {
		return cloudpad.ObjectEntry{}, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		return cloudpad.ObjectEntry{}, err
	}

	h := sha256.New()
	_, copyErr := io.Copy(h, f)

	if closeErr := f.Close(); closeErr != nil {
		slog.Warn("failed to close file", "key", key, "err", closeErr)
	}

	if copyErr != nil {
		return cloudpad.ObjectEntry{}, copyErr
	}

	return cloudpad.ObjectEntry{
		Key:         key,
		Size:        info.Size(),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ContentType: detectContentType(key),
	}, nil
}

func detectContentType(key string) string {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		return cloudpad.DefaultContentType
	}
	return contentType
}

func tmpFileName() string {
	return tmpPrefix + uuid.New().String()
}
