package filesystem_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*filesystem.Store, string) {
	t.Helper()
	tempDir := t.TempDir()
	root, err := os.OpenRoot(tempDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return filesystem.NewFileStorage(root), tempDir
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, closeFn, err := filesystem.Open(dir)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	_, err = store.Write(context.Background(), "a.txt", bytes.NewReader([]byte("a")))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestStore_Get_Success(t *testing.T) {
	store, tempDir := newStore(t)

	content := []byte("test content")
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "test.txt"), content, 0o644))

	result, err := store.Get(context.Background(), "test.txt")
	require.NoError(t, err)

	readContent, err := io.ReadAll(result)
	assert.NoError(t, err)
	assert.Equal(t, content, readContent)
	assert.NoError(t, result.Close())
}

func TestStore_Get_ContextCanceled(t *testing.T) {
	store, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := store.Get(ctx, "test.txt")
	assert.Nil(t, result)
	assert.Equal(t, context.Canceled, err)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _ := newStore(t)

	result, err := store.Get(context.Background(), "nonexistent.txt")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, cloudpad.ErrNotFound)
}

func TestStore_Get_DirectoryIsNotFound(t *testing.T) {
	store, tempDir := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "dir"), 0o755))

	_, err := store.Get(context.Background(), "dir")
	assert.ErrorIs(t, err, cloudpad.ErrNotFound)
}

func TestStore_Get_EscapeIsRejected(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Get(context.Background(), "../outside.txt")
	assert.Error(t, err)
}

func TestStore_Write_Success(t *testing.T) {
	store, tempDir := newStore(t)

	result, err := store.Write(context.Background(), "test.txt", bytes.NewReader([]byte("test content")))
	require.NoError(t, err)
	assert.Equal(t, int64(12), result.BytesWritten)
	assert.Len(t, result.ETag, 64) // SHA256 hex length

	data, err := os.ReadFile(filepath.Join(tempDir, "test.txt"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("test content"), data)
}

func TestStore_Write_EmptyContent(t *testing.T) {
	store, tempDir := newStore(t)

	result, err := store.Write(context.Background(), "empty.txt", bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Zero(t, result.BytesWritten)
	// SHA256 of the empty string
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", result.ETag)

	info, err := os.Stat(filepath.Join(tempDir, "empty.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestStore_Write_WithSubdirectory(t *testing.T) {
	store, tempDir := newStore(t)

	result, err := store.Write(context.Background(), "subdir/nested/test.txt", bytes.NewReader([]byte("nested content")))
	require.NoError(t, err)
	assert.Equal(t, int64(14), result.BytesWritten)

	data, err := os.ReadFile(filepath.Join(tempDir, "subdir", "nested", "test.txt"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("nested content"), data)
}

func TestStore_Write_Overwrite(t *testing.T) {
	store, tempDir := newStore(t)
	ctx := context.Background()

	first, err := store.Write(ctx, "a.txt", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	second, err := store.Write(ctx, "a.txt", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	assert.NotEqual(t, first.ETag, second.ETag)
	data, err := os.ReadFile(filepath.Join(tempDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestStore_Write_FileDirectoryConflict(t *testing.T) {
	t.Run("key below an existing file", func(t *testing.T) {
		store, tempDir := newStore(t)
		_, err := store.Write(context.Background(), "notes", bytes.NewReader([]byte("n")))
		require.NoError(t, err)

		_, err = store.Write(context.Background(), "notes/a.txt", bytes.NewReader([]byte("a")))
		assert.ErrorIs(t, err, cloudpad.ErrInvalidInput)

		data, readErr := os.ReadFile(filepath.Join(tempDir, "notes"))
		require.NoError(t, readErr)
		assert.Equal(t, "n", string(data))
	})

	t.Run("key naming a directory of other keys", func(t *testing.T) {
		store, tempDir := newStore(t)
		_, err := store.Write(context.Background(), "notes/a.txt", bytes.NewReader([]byte("a")))
		require.NoError(t, err)

		_, err = store.Write(context.Background(), "notes", bytes.NewReader([]byte("n")))
		assert.ErrorIs(t, err, cloudpad.ErrInvalidInput)

		data, readErr := os.ReadFile(filepath.Join(tempDir, "notes", "a.txt"))
		require.NoError(t, readErr)
		assert.Equal(t, "a", string(data))
	})

	t.Run("deep key below an existing file", func(t *testing.T) {
		store, _ := newStore(t)
		_, err := store.Write(context.Background(), "a/b", bytes.NewReader([]byte("b")))
		require.NoError(t, err)

		_, err = store.Write(context.Background(), "a/b/c/d.txt", bytes.NewReader([]byte("d")))
		assert.ErrorIs(t, err, cloudpad.ErrInvalidInput)
	})
}

func TestStore_Write_ContextCanceledBefore(t *testing.T) {
	store, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := store.Write(ctx, "test.txt", bytes.NewReader([]byte("test")))
	assert.Equal(t, context.Canceled, err)
	assert.Zero(t, result.BytesWritten)
	assert.Empty(t, result.ETag)
}

func TestStore_Write_ContextCanceledDuringCopy(t *testing.T) {
	store, tempDir := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	reader := &cancellingReader{data: []byte("test content"), cancel: cancel}

	result, err := store.Write(ctx, "test.txt", reader)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.ETag)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed")
}

type cancellingReader struct {
	data   []byte
	pos    int
	cancel context.CancelFunc
}

func (r *cancellingReader) Read(p []byte) (n int, err error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	r.cancel()
	n = copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestStore_Delete_Success(t *testing.T) {
	store, tempDir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "test.txt"), []byte("x"), 0o644))

	require.NoError(t, store.Delete(context.Background(), "test.txt"))

	_, err := os.Stat(filepath.Join(tempDir, "test.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Delete_PrunesEmptyParents(t *testing.T) {
	store, tempDir := newStore(t)
	ctx := context.Background()

	_, err := store.Write(ctx, "a/b/c.txt", bytes.NewReader([]byte("c")))
	require.NoError(t, err)
	_, err = store.Write(ctx, "a/keep.txt", bytes.NewReader([]byte("k")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "a/b/c.txt"))

	_, err = os.Stat(filepath.Join(tempDir, "a", "b"))
	assert.True(t, os.IsNotExist(err), "empty directory should be pruned")

	_, err = os.Stat(filepath.Join(tempDir, "a", "keep.txt"))
	assert.NoError(t, err, "non-empty parent must remain")
}

func TestStore_Delete_ContextCanceled(t *testing.T) {
	store, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, context.Canceled, store.Delete(ctx, "test.txt"))
}

func TestStore_Delete_NotFound(t *testing.T) {
	store, _ := newStore(t)

	err := store.Delete(context.Background(), "nonexistent.txt")
	assert.ErrorIs(t, err, cloudpad.ErrNotFound)
}

func TestStore_List_Success(t *testing.T) {
	store, tempDir := newStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "file1.txt"), []byte("content1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "subdir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "subdir", "file2.json"), []byte("content2"), 0o644))

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byKey := make(map[string]cloudpad.ObjectEntry)
	for _, entry := range entries {
		byKey[entry.Key] = entry
	}

	file1 := byKey["file1.txt"]
	assert.Equal(t, int64(8), file1.Size)
	assert.NotEmpty(t, file1.ETag)
	assert.Equal(t, "text/plain; charset=utf-8", file1.ContentType)

	file2 := byKey["subdir/file2.json"]
	assert.Equal(t, int64(8), file2.Size)
	assert.Equal(t, "application/json", file2.ContentType)
}

func TestStore_List_EmptyDirectory(t *testing.T) {
	store, _ := newStore(t)

	entries, err := store.List(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStore_List_SkipsTempFiles(t *testing.T) {
	store, tempDir := newStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".cloudpad-tmp-1234"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "real.txt"), []byte("real"), 0o644))

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "real.txt", entries[0].Key)
}

func TestStore_List_ContextCanceled(t *testing.T) {
	store, _ := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := store.List(ctx)
	assert.Nil(t, entries)
	assert.Equal(t, context.Canceled, err)
}

func TestStore_List_UnknownFileExtension(t *testing.T) {
	store, tempDir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "file.unknown"), []byte("content"), 0o644))

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, cloudpad.DefaultContentType, entries[0].ContentType)
}

func TestStore_Write_ETagConsistency(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	content := []byte("test content for etag")

	result1, err := store.Write(ctx, "file1.txt", bytes.NewReader(content))
	require.NoError(t, err)
	result2, err := store.Write(ctx, "file2.txt", bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, result1.ETag, result2.ETag, "Same content should produce same ETag")

	entries, err := store.List(ctx)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, result1.ETag, entry.ETag, "Listed ETag should match written ETag")
	}
}

func TestStore_Integration_WriteReadDelete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	content := []byte("integration test content")

	result, err := store.Write(ctx, "notes/test.txt", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), result.BytesWritten)

	reader, err := store.Get(ctx, "notes/test.txt")
	require.NoError(t, err)
	readContent, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Equal(t, content, readContent)
	assert.NoError(t, reader.Close())

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes/test.txt", entries[0].Key)
	assert.Equal(t, result.ETag, entries[0].ETag)

	require.NoError(t, store.Delete(ctx, "notes/test.txt"))

	_, err = store.Get(ctx, "notes/test.txt")
	assert.ErrorIs(t, err, cloudpad.ErrNotFound)

	entries, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := fmt.Appendf(nil, "content-%d", n)
			_, err := store.Write(ctx, fmt.Sprintf("file-%d.txt", n), bytes.NewReader(content))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, entries, 10)
}
