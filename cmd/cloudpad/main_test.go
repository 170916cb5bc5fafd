package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpad/cloudpad"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", detectContentType("index.html"))
	assert.Equal(t, cloudpad.DefaultContentType, detectContentType("Makefile"))
	assert.Equal(t, cloudpad.DefaultContentType, detectContentType("blob.zzunknown"))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.go"), []byte("b"), 0o600))

	t.Run("single file", func(t *testing.T) {
		entries, err := collectFiles(filepath.Join(dir, "a.txt"), false, "/notes")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "notes/a.txt", entries[0].destKey)
	})

	t.Run("directory without recursive", func(t *testing.T) {
		_, err := collectFiles(dir, false, "")
		assert.Error(t, err)
	})

	t.Run("recursive", func(t *testing.T) {
		entries, err := collectFiles(dir, true, "p/")
		require.NoError(t, err)

		var keys []string
		for _, e := range entries {
			keys = append(keys, e.destKey)
		}
		sort.Strings(keys)
		assert.Equal(t, []string{"p/a.txt", "p/sub/b.go"}, keys)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := collectFiles(filepath.Join(dir, "nope"), false, "")
		assert.Error(t, err)
	})
}

func TestMatchKeys(t *testing.T) {
	items := []cloudpad.ObjectInfo{{Key: "a.txt"}, {Key: "dir/b.txt"}, {Key: "dir/c.txt"}}
	existing := map[string]struct{}{"a.txt": {}, "dir/b.txt": {}, "dir/c.txt": {}}

	t.Run("exact", func(t *testing.T) {
		targets, notFound := matchKeys(items, existing, []string{"a.txt", "missing", "a.txt"}, false)
		assert.Equal(t, []string{"a.txt"}, targets)
		assert.Equal(t, []string{"missing"}, notFound)
	})

	t.Run("prefix", func(t *testing.T) {
		targets, notFound := matchKeys(items, existing, []string{"dir/", "zzz"}, true)
		assert.Equal(t, []string{"dir/b.txt", "dir/c.txt"}, targets)
		assert.Equal(t, []string{"zzz"}, notFound)
	})
}
