package clientcli_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/clientcli"
	cloudpadhttp "github.com/cloudpad/cloudpad/http"
	"github.com/cloudpad/cloudpad/keybackend"
	"github.com/cloudpad/cloudpad/memory"
)

const testToken = "test-token"

// newTestServer runs the real router over a memory bucket.
func newTestServer(t *testing.T, maxUpload int64) (*httptest.Server, *memory.Bucket) {
	t.Helper()

	bucket := memory.New()
	service, err := cloudpad.NewFileService(bucket)
	require.NoError(t, err)

	tokens, err := keybackend.NewTokenStore(keybackend.TokenConfig{Token: testToken})
	require.NoError(t, err)

	handler := cloudpadhttp.NewHandler(&cloudpadhttp.HandlerConfig{
		Verifier:      tokens,
		TokenHeader:   cloudpadhttp.DefaultTokenHeader,
		MaxUploadSize: maxUpload,
	}, service)

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return server, bucket
}

func newTestClient(t *testing.T, endpoint, token string) *clientcli.Client {
	t.Helper()

	client, err := clientcli.New(&clientcli.Config{Endpoint: endpoint, Token: token})
	require.NoError(t, err)
	return client
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := clientcli.New(nil)
		assert.ErrorIs(t, err, clientcli.ErrConfigRequired)
	})

	t.Run("trailing slash removed", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:8787/", "tok")
		link, err := client.Link("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8787/tok/a.txt", link)
	})
}

func TestClient_Link(t *testing.T) {
	client := newTestClient(t, "http://pad.local", "s3cr t")

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain", "notes.md", "http://pad.local/s3cr%20t/notes.md"},
		{"nested", "docs/a b.txt", "http://pad.local/s3cr%20t/docs/a%20b.txt"},
		{"leading slash is kept", "/x.json", "http://pad.local/s3cr%20t//x.json"},
		{"question mark", "what?.txt", "http://pad.local/s3cr%20t/what%3F.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Link(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty key", func(t *testing.T) {
		_, err := client.Link("")
		assert.ErrorIs(t, err, clientcli.ErrEmptyKey)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := newTestClient(t, "http://pad.local", "").Link("a")
		assert.ErrorIs(t, err, clientcli.ErrTokenRequired)
	})
}

func TestClient_RoundTrip(t *testing.T) {
	server, _ := newTestServer(t, 0)
	client := newTestClient(t, server.URL, testToken)
	ctx := context.Background()
	dir := t.TempDir()

	src := writeTempFile(t, dir, "config.yaml", "a: 1\n")

	results, err := client.Upload(ctx, clientcli.UploadOptions{
		LocalPath:    src,
		Key:          "dir/config.yaml",
		CacheControl: "no-cache",
		Metadata:     map[string]string{"author": "pat"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "dir/config.yaml", results[0].Key)
	assert.Equal(t, int64(5), results[0].Size)
	assert.NotEmpty(t, results[0].ETag)

	list, err := client.List(ctx, clientcli.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "yaml", list.Items[0].Language)
	assert.Equal(t, int64(5), list.TotalSize())

	dst := filepath.Join(dir, "out", "copy.yaml")
	dl, body, err := client.Download(ctx, clientcli.DownloadOptions{Key: "dir/config.yaml", LocalPath: dst})
	require.NoError(t, err)
	assert.Nil(t, body)
	assert.Equal(t, results[0].ETag, dl.ETag)
	assert.Equal(t, "no-cache", dl.CacheControl)
	assert.Equal(t, map[string]string{"author": "pat"}, dl.Metadata)
	assert.Equal(t, int64(5), dl.Size)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(got))

	renamed, err := client.Rename(ctx, clientcli.RenameOptions{OldKey: "dir/config.yaml", NewKey: "config.yml"})
	require.NoError(t, err)
	assert.Equal(t, "config.yml", renamed.NewKey)

	_, _, err = client.Download(ctx, clientcli.DownloadOptions{Key: "dir/config.yaml", LocalPath: "-"})
	assert.ErrorIs(t, err, clientcli.ErrNotFound)

	dl, body, err = client.Download(ctx, clientcli.DownloadOptions{Key: "config.yml", LocalPath: "-"})
	require.NoError(t, err)
	require.NotNil(t, body)
	content, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(content))
	assert.Equal(t, "-", dl.LocalPath)

	deleted, err := client.Delete(ctx, clientcli.DeleteOptions{Keys: []string{"config.yml"}})
	require.NoError(t, err)
	assert.False(t, clientcli.HasDeleteErrors(deleted))

	list, err = client.List(ctx, clientcli.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestClient_KeysKeptAsGiven(t *testing.T) {
	server, bucket := newTestServer(t, 0)
	client := newTestClient(t, server.URL, testToken)
	ctx := context.Background()
	src := writeTempFile(t, t.TempDir(), "a.txt", "abc")

	for _, key := range []string{"/x.txt", "a//b.txt", "dir/"} {
		results, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: src, Key: key})
		require.NoError(t, err, key)
		assert.Equal(t, key, results[0].Key)

		obj, err := bucket.Get(ctx, key)
		require.NoError(t, err, key)
		_ = obj.Close()
	}

	list, err := client.List(ctx, clientcli.ListOptions{})
	require.NoError(t, err)
	keys := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []string{"/x.txt", "a//b.txt", "dir/"}, keys)

	_, body, err := client.Download(ctx, clientcli.DownloadOptions{Key: "/x.txt", LocalPath: "-"})
	require.NoError(t, err)
	content, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(content))

	deleted, err := client.Delete(ctx, clientcli.DeleteOptions{Keys: []string{"/x.txt"}})
	require.NoError(t, err)
	assert.False(t, clientcli.HasDeleteErrors(deleted))
	assert.Equal(t, 2, bucket.Len())

	_, err = bucket.Get(ctx, "x.txt")
	assert.ErrorIs(t, err, cloudpad.ErrNotFound)
}

func TestClient_List_PrefixAndOrder(t *testing.T) {
	server, bucket := newTestServer(t, 0)
	client := newTestClient(t, server.URL, testToken)
	ctx := context.Background()

	for _, key := range []string{"b/2.py", "a.md", "b/1.ts"} {
		_, err := bucket.Put(ctx, key, strings.NewReader("x"), 1, cloudpad.PutOptions{})
		require.NoError(t, err)
	}

	list, err := client.List(ctx, clientcli.ListOptions{})
	require.NoError(t, err)
	var keys []string
	for _, item := range list.Items {
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []string{"a.md", "b/1.ts", "b/2.py"}, keys)

	list, err = client.List(ctx, clientcli.ListOptions{Prefix: "b/"})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "typescript", list.Items[0].Language)
	assert.Equal(t, "python", list.Items[1].Language)
}

func TestClient_Unauthorized(t *testing.T) {
	server, _ := newTestServer(t, 0)
	client := newTestClient(t, server.URL, "wrong")

	_, err := client.List(context.Background(), clientcli.ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, clientcli.ErrUnauthorized)

	var apiErr *clientcli.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestClient_Upload(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:1", testToken)
		_, err := client.Upload(context.Background(), clientcli.UploadOptions{})
		assert.ErrorIs(t, err, clientcli.ErrEmptyPath)
	})

	t.Run("key derived from local path", func(t *testing.T) {
		server, bucket := newTestServer(t, 0)
		client := newTestClient(t, server.URL, testToken)
		dir := t.TempDir()
		writeTempFile(t, dir, "notes.md", "# hi")

		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		results, err := client.Upload(context.Background(), clientcli.UploadOptions{LocalPath: "./notes.md"})
		require.NoError(t, err)
		assert.Equal(t, "notes.md", results[0].Key)
		assert.Equal(t, 1, bucket.Len())
	})

	t.Run("empty file", func(t *testing.T) {
		server, _ := newTestServer(t, 0)
		client := newTestClient(t, server.URL, testToken)
		src := writeTempFile(t, t.TempDir(), "empty.txt", "")

		results, err := client.Upload(context.Background(), clientcli.UploadOptions{LocalPath: src, Key: "empty.txt"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), results[0].Size)
	})

	t.Run("recursive", func(t *testing.T) {
		server, _ := newTestServer(t, 0)
		client := newTestClient(t, server.URL, testToken)
		dir := t.TempDir()
		writeTempFile(t, dir, "a.txt", "a")
		writeTempFile(t, dir, "sub/b.json", "{}")

		results, err := client.Upload(context.Background(), clientcli.UploadOptions{
			LocalPath: dir,
			Key:       "/proj/",
			Recursive: true,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)

		list, err := client.List(context.Background(), clientcli.ListOptions{})
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		assert.Equal(t, "proj/a.txt", list.Items[0].Key)
		assert.Equal(t, "proj/sub/b.json", list.Items[1].Key)
	})

	t.Run("too large", func(t *testing.T) {
		server, _ := newTestServer(t, 4)
		client := newTestClient(t, server.URL, testToken)
		src := writeTempFile(t, t.TempDir(), "big.txt", "0123456789")

		_, err := client.Upload(context.Background(), clientcli.UploadOptions{LocalPath: src, Key: "big.txt"})
		assert.ErrorIs(t, err, clientcli.ErrTooLarge)
	})
}

func TestClient_Delete(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:1", testToken)
		_, err := client.Delete(context.Background(), clientcli.DeleteOptions{})
		assert.ErrorIs(t, err, clientcli.ErrNoKeys)
	})

	t.Run("missing key is deleted", func(t *testing.T) {
		server, _ := newTestServer(t, 0)
		client := newTestClient(t, server.URL, testToken)

		results, err := client.Delete(context.Background(), clientcli.DeleteOptions{Keys: []string{"nope.txt", ""}})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[0].Deleted)
		assert.ErrorIs(t, results[1].Err, clientcli.ErrEmptyKey)
		assert.True(t, clientcli.HasDeleteErrors(results))
	})
}

func TestClient_Rename(t *testing.T) {
	client := newTestClient(t, "http://localhost:1", testToken)

	_, err := client.Rename(context.Background(), clientcli.RenameOptions{OldKey: "a"})
	assert.ErrorIs(t, err, clientcli.ErrEmptyKey)

	_, err = client.Rename(context.Background(), clientcli.RenameOptions{OldKey: "a", NewKey: "/a"})
	assert.ErrorIs(t, err, clientcli.ErrSameRename)

	t.Run("missing source", func(t *testing.T) {
		server, _ := newTestServer(t, 0)
		client := newTestClient(t, server.URL, testToken)

		_, err := client.Rename(context.Background(), clientcli.RenameOptions{OldKey: "a", NewKey: "b"})
		assert.ErrorIs(t, err, clientcli.ErrNotFound)
	})
}

func TestClient_CustomHeader(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Pad-Token")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]any{})
	}))
	t.Cleanup(server.Close)

	client, err := clientcli.New(&clientcli.Config{Endpoint: server.URL, Token: "abc", Header: "X-Pad-Token"})
	require.NoError(t, err)

	_, err = client.List(context.Background(), clientcli.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, "abc", seen)
}

func TestAPIError(t *testing.T) {
	err := &clientcli.APIError{StatusCode: http.StatusNotFound, Body: "gone"}
	assert.ErrorIs(t, err, clientcli.ErrNotFound)
	assert.NotErrorIs(t, err, clientcli.ErrUnauthorized)
	assert.True(t, err.IsNotFound())
	assert.Equal(t, "server error: 404 - gone", err.Error())

	withMsg := &clientcli.APIError{StatusCode: 400, Code: "invalid_key", Message: "Key is required"}
	assert.Equal(t, "server error: 400 invalid_key: Key is required", withMsg.Error())
}

func TestNormalizeLocalToRemotePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"./foo/bar.txt", "foo/bar.txt"},
		{"/abs/path/file.txt", "abs/path/file.txt"},
		{"../sibling/file.txt", "sibling/file.txt"},
		{"a//b.txt", "a/b.txt"},
		{"..", ""},
		{".", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, clientcli.NormalizeLocalToRemotePath(tt.in))
		})
	}
}
